// Package sim implements the regression-to-the-mean experiment.
//
// One run draws a population of latent trait values, measures every
// individual twice with independent noise, selects the top K by the first
// ("parent") measurement, and summarizes how far the second ("child")
// measurement of that group falls back toward the population mean:
//
//   - [Params]: the five inputs of a run
//   - [Engine]: draws, thresholds and summarizes a run
//   - [Result]: population, both measurements, selection mask, [Summary]
//   - [Percentile]: linear interpolation between order statistics
//   - [Expected]: large-sample prediction for the same experiment
//
// # Example
//
//	eng := sim.New()
//	res, err := eng.Run(sim.DefaultParams())
//	switch {
//	case errors.Is(err, sim.ErrEmptySelection):
//	    fmt.Println("nobody was selected")
//	case err != nil:
//	    log.Fatal(err)
//	default:
//	    fmt.Println(res.Summary.Text())
//	}
//
// # Randomness
//
// Every call to [Engine.Run] builds its own generator, so an Engine is safe
// for concurrent use and runs are independent. Use [WithSource] or
// [WithSeed] when a reproducible stream is required, and
// [Engine.RunStream] to pin a run to a stream regardless of call order.
package sim
