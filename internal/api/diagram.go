package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/banshee-data/shockwave.report/internal/augment"
	"github.com/banshee-data/shockwave.report/internal/flow"
	"github.com/banshee-data/shockwave.report/internal/httputil"
	"github.com/banshee-data/shockwave.report/internal/render"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

// runDiagram executes one simulation and returns the rendered figure.
//
// POST /api/diagram
//
// Form/query parameters:
//
//	augments      augmenter list (see augment.Parse); required
//	horizon       simulation horizon in seconds
//	vf, w, kj, k0 fundamental diagram overrides
//	trajectories  vehicle trace count (default 0)
//	polygons      include region polygons (default true)
func (s *Server) runDiagram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	params, err := s.parseRunParams(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	diagram, err := flow.New(params.vf, params.w, params.kj, params.k0)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("fundamental diagram: %v", err))
		return
	}

	augments, err := augment.Parse(params.augments)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	engine, err := sim.New(diagram, params.horizon, augments)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := engine.Run(); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("simulation failed: %v", err))
		return
	}

	fig, err := render.Build(engine, uuid.NewString(), render.DefaultViewport(engine), render.Options{
		Polygons:     params.polygons,
		Trajectories: params.trajectories,
	})
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render failed: %v", err))
		return
	}

	httputil.WriteJSONOK(w, fig)
}

// showFundamental renders the flow-density relation as an HTML chart.
//
// GET /api/fundamental
func (s *Server) showFundamental(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	d := s.defaults
	vf := floatParam(r, "vf", d.FreeflowSpeed)
	wave := floatParam(r, "w", d.WaveSpeed)
	kj := floatParam(r, "kj", d.JamDensity)
	k0 := floatParam(r, "k0", d.InitDensity)

	diagram, err := flow.New(vf, wave, kj, k0)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("fundamental diagram: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.FundamentalChart(diagram, w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}

type runParams struct {
	augments     string
	horizon      float64
	vf, w        float64
	kj, k0       float64
	trajectories int
	polygons     bool
}

func (s *Server) parseRunParams(r *http.Request) (runParams, error) {
	d := s.defaults
	p := runParams{
		augments: r.FormValue("augments"),
		polygons: true,
	}
	if p.augments == "" {
		return p, fmt.Errorf("missing 'augments' parameter")
	}

	var err error
	for _, f := range []struct {
		name string
		def  float64
		dst  *float64
	}{
		{"horizon", d.Horizon, &p.horizon},
		{"vf", d.FreeflowSpeed, &p.vf},
		{"w", d.WaveSpeed, &p.w},
		{"kj", d.JamDensity, &p.kj},
		{"k0", d.InitDensity, &p.k0},
	} {
		if *f.dst, err = strictFloatParam(r, f.name, f.def); err != nil {
			return p, err
		}
	}
	if v := r.FormValue("trajectories"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid 'trajectories' parameter %q", v)
		}
		p.trajectories = n
	}
	if v := r.FormValue("polygons"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid 'polygons' parameter %q", v)
		}
		p.polygons = b
	}
	return p, nil
}

func floatParam(r *http.Request, name string, def float64) float64 {
	f, err := strictFloatParam(r, name, def)
	if err != nil {
		return def
	}
	return f
}

func strictFloatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %q parameter %q", name, v)
	}
	return f, nil
}
