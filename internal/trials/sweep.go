package trials

import (
	"context"
	"fmt"

	"github.com/san-kum/rtmsim/internal/sim"
)

// SweepPoint is the ensemble report for one measurement error value.
type SweepPoint struct {
	MeasurementError float64 `json:"measurement_error"`
	Report           *Report `json:"report"`
}

// Sweep runs n trials for base with each measurement error in errs, in
// order. Point k uses streams k*n to (k+1)*n-1. The first failing point
// aborts the sweep.
func (e *Ensemble) Sweep(ctx context.Context, base sim.Params, errs []float64, n int) ([]SweepPoint, error) {
	points := make([]SweepPoint, 0, len(errs))
	for k, me := range errs {
		p := base
		p.MeasurementError = me

		report, err := e.RunStreams(ctx, p, n, uint64(k)*uint64(max(n, 0)))
		if err != nil {
			return points, fmt.Errorf("measurement error %g: %w", me, err)
		}
		e.log.Debug("sweep point", "measurement_error", me, "mean_effect", report.MeanEffect)
		points = append(points, SweepPoint{MeasurementError: me, Report: report})
	}
	return points, nil
}

// Effects returns the mean effect of each point in sweep order.
func Effects(points []SweepPoint) []float64 {
	out := make([]float64, len(points))
	for i, pt := range points {
		out[i] = pt.Report.MeanEffect
	}
	return out
}
