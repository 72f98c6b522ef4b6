// Command render-diagram runs one shockwave scenario and writes the
// diagram to an image file and, optionally, the figure to JSON.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/shockwave.report/internal/augment"
	"github.com/banshee-data/shockwave.report/internal/flow"
	"github.com/banshee-data/shockwave.report/internal/render"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

func main() {
	augments := flag.String("augments", "", "augmenter list, e.g. \"tl,10,10,5\" (required)")
	output := flag.String("o", "diagram.svg", "output image path (.svg, .png, .pdf)")
	jsonOut := flag.String("json", "", "optional figure JSON output path")
	vf := flag.Float64("vf", 2.0, "free-flow speed (m/s)")
	w := flag.Float64("w", 1.0, "congestion wave speed (m/s)")
	kj := flag.Float64("kj", 5.0, "jam density (veh/m)")
	k0 := flag.Float64("k0", 1.0, "initial density (veh/m)")
	horizon := flag.Float64("horizon", 60.0, "simulation horizon (s)")
	trajectories := flag.Int("trajectories", 0, "vehicle trace count")
	flag.Parse()

	if *augments == "" {
		flag.Usage()
		os.Exit(2)
	}

	diagram, err := flow.New(*vf, *w, *kj, *k0)
	if err != nil {
		log.Fatalf("fundamental diagram: %v", err)
	}

	augs, err := augment.Parse(*augments)
	if err != nil {
		log.Fatalf("augments: %v", err)
	}

	engine, err := sim.New(diagram, *horizon, augs)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	if err := engine.Run(); err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	fig, err := render.Build(engine, uuid.NewString(), render.DefaultViewport(engine), render.Options{
		Polygons:     true,
		Trajectories: *trajectories,
	})
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	if err := render.SavePlot(fig, *output); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	log.Printf("✓ Created: %s (%d interfaces, %d regions)", *output, len(fig.Interfaces), len(fig.Polygons))

	if *jsonOut != "" {
		f, err := os.Create(*jsonOut)
		if err != nil {
			log.Fatalf("create %s: %v", *jsonOut, err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fig); err != nil {
			log.Fatalf("encode figure: %v", err)
		}
		log.Printf("✓ Created: %s", *jsonOut)
	}
}
