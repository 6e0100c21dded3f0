package sim_test

import (
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rtmsim/internal/sim"
)

type countingSource struct {
	rng   *rand.Rand
	draws int
}

func newCountingSource(seed uint64) *countingSource {
	return &countingSource{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (c *countingSource) NormFloat64() float64 {
	c.draws++
	return c.rng.NormFloat64()
}

func countSelected(mask []bool) int {
	n := 0
	for _, sel := range mask {
		if sel {
			n++
		}
	}
	return n
}

func exampleParams() sim.Params {
	return sim.Params{
		PopulationMean:   170,
		PopulationSD:     8,
		MeasurementError: 5,
		PopulationSize:   1000,
		SelectionCount:   100,
	}
}

var _ = Describe("Engine", func() {
	var eng *sim.Engine

	BeforeEach(func() {
		eng = sim.New(sim.WithSeed(20240917))
	})

	Describe("the example scenario", func() {
		It("returns full-length sequences and selects about K individuals", func() {
			res, err := eng.Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Population).To(HaveLen(1000))
			Expect(res.Primary).To(HaveLen(1000))
			Expect(res.Secondary).To(HaveLen(1000))
			Expect(res.Mask).To(HaveLen(1000))
			Expect(countSelected(res.Mask)).To(BeNumerically("~", 100, 1))
			Expect(res.Summary.Selected).To(Equal(countSelected(res.Mask)))
		})

		It("shows a positive regression effect in the large majority of runs", func() {
			const trials = 100
			positive := 0
			for i := 0; i < trials; i++ {
				res, err := eng.Run(exampleParams())
				Expect(err).NotTo(HaveOccurred())
				if res.Summary.RegressionEffect > 0 {
					positive++
				}
			}
			Expect(float64(positive) / trials).To(BeNumerically(">=", 0.9))
		})

		It("keeps the derived fields consistent", func() {
			res, err := eng.Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())

			s := res.Summary
			Expect(s.PopulationMean).To(Equal(170.0))
			Expect(s.RegressionEffect).To(BeNumerically("~", s.SelectedPrimaryMean-s.SelectedSecondaryMean, 1e-12))
			Expect(s.Reliability).To(BeNumerically("~", 64.0/89.0, 1e-12))
			Expect(s.Correlation).To(BeNumerically(">", 0))
			for i, sel := range res.Mask {
				Expect(sel).To(Equal(res.Primary[i] >= s.Threshold))
			}
		})
	})

	Describe("degenerate populations", func() {
		It("measures everyone at the mean when there is no spread and no error", func() {
			p := exampleParams()
			p.PopulationSD = 0
			p.MeasurementError = 0

			res, err := eng.Run(p)
			Expect(err).NotTo(HaveOccurred())
			for i := range res.Population {
				Expect(res.Population[i]).To(Equal(170.0))
				Expect(res.Primary[i]).To(Equal(170.0))
				Expect(res.Secondary[i]).To(Equal(170.0))
			}
			Expect(res.Summary.RegressionEffect).To(Equal(0.0))
		})

		It("copies the latent value into both measurements without error", func() {
			p := exampleParams()
			p.MeasurementError = 0

			res, err := eng.Run(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Primary).To(Equal(res.Population))
			Expect(res.Secondary).To(Equal(res.Population))
			Expect(res.Summary.RegressionEffect).To(Equal(0.0))
		})

		It("draws primary and secondary with independent noise", func() {
			res, err := eng.Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())

			differ := 0
			for i := range res.Primary {
				if res.Primary[i] != res.Secondary[i] {
					differ++
				}
			}
			Expect(differ).To(Equal(len(res.Primary)))
		})
	})

	Describe("selection bounds", func() {
		DescribeTable("count stays within one of K",
			func(p sim.Params) {
				res, err := eng.Run(p)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Mask).To(HaveLen(p.PopulationSize))
				Expect(countSelected(res.Mask)).To(BeNumerically("~", p.SelectionCount, 1))
			},
			Entry("one of many", sim.Params{PopulationMean: 0, PopulationSD: 1, MeasurementError: 1, PopulationSize: 500, SelectionCount: 1}),
			Entry("half", sim.Params{PopulationMean: 50, PopulationSD: 10, MeasurementError: 2, PopulationSize: 200, SelectionCount: 100}),
			Entry("tiny population", sim.Params{PopulationMean: 170, PopulationSD: 8, MeasurementError: 5, PopulationSize: 7, SelectionCount: 3}),
			Entry("error only", sim.Params{PopulationMean: 170, PopulationSD: 0, MeasurementError: 5, PopulationSize: 1000, SelectionCount: 37}),
			Entry("all but one", sim.Params{PopulationMean: 170, PopulationSD: 8, MeasurementError: 5, PopulationSize: 50, SelectionCount: 49}),
		)

		It("selects everybody when K equals the population size", func() {
			p := exampleParams()
			p.SelectionCount = p.PopulationSize

			res, err := eng.Run(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(countSelected(res.Mask)).To(Equal(p.PopulationSize))
		})

		It("fails with an empty selection when K is zero", func() {
			p := exampleParams()
			p.SelectionCount = 0

			res, err := eng.Run(p)
			Expect(err).To(MatchError(sim.ErrEmptySelection))
			Expect(res).To(BeNil())
		})

		It("draws before discovering the empty selection", func() {
			p := exampleParams()
			p.SelectionCount = 0
			src := newCountingSource(1)

			_, err := sim.Run(p, src)
			Expect(err).To(MatchError(sim.ErrEmptySelection))
			Expect(src.draws).To(Equal(3 * p.PopulationSize))
		})
	})

	Describe("invalid parameters", func() {
		DescribeTable("are rejected before any draw",
			func(mod func(p *sim.Params)) {
				p := exampleParams()
				mod(&p)
				src := newCountingSource(7)
				eng := sim.New(sim.WithSource(func() sim.Source { return src }))

				res, err := eng.Run(p)
				Expect(err).To(MatchError(sim.ErrInvalidParameters))
				Expect(res).To(BeNil())
				Expect(src.draws).To(BeZero())

				_, err = sim.Run(p, src)
				Expect(err).To(MatchError(sim.ErrInvalidParameters))
				Expect(src.draws).To(BeZero())
			},
			Entry("negative selection count", func(p *sim.Params) { p.SelectionCount = -1 }),
			Entry("selection count above population", func(p *sim.Params) { p.SelectionCount = p.PopulationSize + 1 }),
			Entry("zero population", func(p *sim.Params) { p.PopulationSize = 0 }),
			Entry("negative sd", func(p *sim.Params) { p.PopulationSD = -2 }),
			Entry("negative error", func(p *sim.Params) { p.MeasurementError = -1 }),
		)

		It("names the offending field", func() {
			p := exampleParams()
			p.SelectionCount = -1

			_, err := sim.New().Run(p)
			var pe *sim.ParamError
			Expect(err).To(BeAssignableToTypeOf(pe))
			Expect(err.(*sim.ParamError).Field).To(Equal("selection_count"))
		})
	})

	Describe("regression to the mean", func() {
		averageSummary := func(p sim.Params, trials int) sim.Summary {
			var avg sim.Summary
			for i := 0; i < trials; i++ {
				res, err := eng.Run(p)
				Expect(err).NotTo(HaveOccurred())
				avg.SelectedPrimaryMean += res.Summary.SelectedPrimaryMean / float64(trials)
				avg.SelectedSecondaryMean += res.Summary.SelectedSecondaryMean / float64(trials)
				avg.RegressionEffect += res.Summary.RegressionEffect / float64(trials)
			}
			return avg
		}

		It("grows with measurement error", func() {
			var effects []float64
			for _, e := range []float64{0, 2.5, 5, 10} {
				p := exampleParams()
				p.MeasurementError = e
				effects = append(effects, math.Abs(averageSummary(p, 50).RegressionEffect))
			}
			for i := 1; i < len(effects); i++ {
				Expect(effects[i]).To(BeNumerically(">", effects[i-1]), "effects %v", effects)
			}
		})

		It("places the children between the parents and the population mean", func() {
			avg := averageSummary(exampleParams(), 50)
			Expect(avg.SelectedPrimaryMean).To(BeNumerically(">=", 170))
			Expect(avg.SelectedSecondaryMean).To(BeNumerically(">", 170))
			Expect(avg.SelectedSecondaryMean).To(BeNumerically("<", avg.SelectedPrimaryMean))
		})

		It("agrees with the analytic expectation", func() {
			want, err := sim.Expected(exampleParams())
			Expect(err).NotTo(HaveOccurred())

			avg := averageSummary(exampleParams(), 100)
			Expect(avg.SelectedPrimaryMean).To(BeNumerically("~", want.SelectedPrimaryMean, 0.5))
			Expect(avg.SelectedSecondaryMean).To(BeNumerically("~", want.SelectedSecondaryMean, 0.5))
			Expect(avg.RegressionEffect).To(BeNumerically("~", want.RegressionEffect, 0.5))
		})
	})

	Describe("randomness", func() {
		It("redraws the population on every run", func() {
			eng := sim.New()
			a, err := eng.Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())
			b, err := eng.Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Population).NotTo(Equal(b.Population))
		})

		It("reproduces a run sequence from the same seed", func() {
			a, err := sim.New(sim.WithSeed(3)).Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())
			b, err := sim.New(sim.WithSeed(3)).Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Primary).To(Equal(b.Primary))
			Expect(a.Summary).To(Equal(b.Summary))
		})

		It("pins a run to its stream regardless of call order", func() {
			first := sim.New(sim.WithSeed(3))
			a, err := first.RunStream(exampleParams(), 7)
			Expect(err).NotTo(HaveOccurred())

			second := sim.New(sim.WithSeed(3))
			for i := 0; i < 3; i++ {
				_, err := second.Run(exampleParams())
				Expect(err).NotTo(HaveOccurred())
			}
			b, err := second.RunStream(exampleParams(), 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Primary).To(Equal(a.Primary))

			c, err := second.RunStream(exampleParams(), 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Primary).NotTo(Equal(a.Primary))
		})

		It("matches Run's stream numbering", func() {
			a, err := sim.New(sim.WithSeed(4)).Run(exampleParams())
			Expect(err).NotTo(HaveOccurred())
			b, err := sim.New(sim.WithSeed(4)).RunStream(exampleParams(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Summary).To(Equal(a.Summary))
		})

		It("validates before picking a stream", func() {
			p := exampleParams()
			p.SelectionCount = -1
			_, err := sim.New(sim.WithSeed(4)).RunStream(p, 2)
			Expect(err).To(MatchError(sim.ErrInvalidParameters))
		})
	})
})

var _ = Describe("Expected", func() {
	It("predicts no effect without measurement error", func() {
		p := exampleParams()
		p.MeasurementError = 0

		want, err := sim.Expected(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(want.RegressionEffect).To(BeNumerically("~", 0, 1e-12))
		Expect(want.SelectedPrimaryMean).To(Equal(want.SelectedSecondaryMean))
	})

	It("predicts no shift when everybody is selected", func() {
		p := exampleParams()
		p.SelectionCount = p.PopulationSize

		want, err := sim.Expected(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(want.SelectedPrimaryMean).To(Equal(170.0))
		Expect(want.RegressionEffect).To(Equal(0.0))
	})

	It("increases with measurement error", func() {
		prev := -1.0
		for _, e := range []float64{0, 1, 5, 15} {
			p := exampleParams()
			p.MeasurementError = e
			want, err := sim.Expected(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(want.RegressionEffect).To(BeNumerically(">", prev))
			prev = want.RegressionEffect
		}
	})

	It("shares the run's failure modes", func() {
		p := exampleParams()
		p.SelectionCount = 0
		_, err := sim.Expected(p)
		Expect(err).To(MatchError(sim.ErrEmptySelection))

		p.SelectionCount = -3
		_, err = sim.Expected(p)
		Expect(err).To(MatchError(sim.ErrInvalidParameters))
	})
})
