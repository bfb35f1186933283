package sweep

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

type sweepStatus struct {
	RunID string `json:"run_id"`
	Snapshot
	Summary Summary `json:"summary"`
}

// AttachAdminRoutes attaches debugging pages for the live sweep to the
// given HTTP mux under /debug/. The pages only read snapshots.
func (c *Controller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("sweep", "current sweep samples as JSON", func(w http.ResponseWriter, r *http.Request) {
		snap := c.buf.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sweepStatus{
			RunID:    c.runID,
			Snapshot: snap,
			Summary:  Summarize(snap.Samples),
		}); err != nil {
			monitoring.Logf("Failed to encode sweep status: %v", err)
		}
	})

	debug.HandleFunc("sweep-plot", "current sweep as a polar scatter (PNG)", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := WritePlot(w, c.buf.Snapshot()); err != nil {
			http.Error(w, fmt.Sprintf("Failed to render plot: %v", err), http.StatusInternalServerError)
		}
	})
}

// WritePlot renders snap as a PNG top-down view: slot i is drawn at angle
// 2πi/len(samples) and radius equal to its distance. The slot about to be
// written is highlighted.
func WritePlot(w io.Writer, snap Snapshot) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sweep (revolution %d)", snap.Revolutions)
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"

	n := len(snap.Samples)
	pts := make(plotter.XYs, 0, n)
	for i, mm := range snap.Samples {
		pts = append(pts, polarPoint(i, n, mm))
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	p.Add(scatter, plotter.NewGrid())

	if n > 0 {
		cur, err := plotter.NewScatter(plotter.XYs{polarPoint(snap.Index, n, snap.Samples[snap.Index])})
		if err != nil {
			return fmt.Errorf("building cursor: %w", err)
		}
		cur.GlyphStyle.Radius = vg.Points(4)
		cur.GlyphStyle.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
		p.Add(cur)
	}

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("creating plot writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func polarPoint(i, n int, mm uint32) plotter.XY {
	theta := 2 * math.Pi * float64(i) / float64(n)
	r := float64(mm)
	return plotter.XY{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}
