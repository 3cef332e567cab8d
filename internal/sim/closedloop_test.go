package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vescwheel/internal/config"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/experiment"
)

func run(cfg *config.Config) *dynamo.Result {
	exp, err := experiment.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	res, err := exp.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return res
}

func meanPlantSpeed(res *dynamo.Result, from, to float64) float64 {
	sum, n := 0.0, 0
	for _, s := range res.Samples {
		if s.Time >= from && s.Time < to {
			sum += s.PlantVelocity()
			n++
		}
	}
	Expect(n).To(BeNumerically(">", 0))
	return sum / float64(n)
}

func rmsError(res *dynamo.Result, from, to float64) float64 {
	sum, n := 0.0, 0
	for _, s := range res.Samples {
		if s.Time >= from && s.Time < to {
			e := s.Reference - s.PlantVelocity()
			sum += e * e
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}

var _ = Describe("Wheel velocity loop", func() {
	Context("with a constant reference", func() {
		var res *dynamo.Result

		BeforeEach(func() {
			res = run(config.GetPreset("step"))
		})

		It("runs every tick at the control rate", func() {
			Expect(res.Ticks).To(Equal(500))
			Expect(res.Samples[1].Time).To(BeNumerically("~", 0.02, 1e-12))
		})

		It("resets on the first tick only", func() {
			Expect(res.Samples[0].Reset).To(BeTrue())
			for _, s := range res.Samples[1:] {
				Expect(s.Reset).To(BeFalse())
			}
		})

		It("settles near the reference", func() {
			Expect(meanPlantSpeed(res, 8, 10)).To(BeNumerically("~", 10, 1.0))
		})

		It("keeps the duty inside the limiter", func() {
			for _, s := range res.Samples {
				Expect(math.Abs(s.Duty)).To(BeNumerically("<=", 1.0))
			}
			Expect(res.Metrics["saturation"]).To(BeZero())
		})

		It("reports no sensor faults", func() {
			Expect(res.Faults).To(BeZero())
			Expect(res.Metrics["faults"]).To(BeZero())
		})
	})

	Context("when the hall count glitches", func() {
		It("recovers by resetting on both edges of each glitch", func() {
			res := run(config.GetPreset("glitch"))

			Expect(res.Faults).To(Equal(4))
			for _, s := range res.Samples {
				if s.Fault {
					Expect(s.Reset).To(BeTrue())
				}
				Expect(math.Abs(s.PlantVelocity())).To(BeNumerically("<", 30))
			}
			Expect(meanPlantSpeed(res, 8, 10)).To(BeNumerically(">", 5))
		})
	})

	Context("when the reference is released", func() {
		It("commands zero duty and re-arms the reset", func() {
			res := run(config.GetPreset("release"))

			for _, s := range res.Samples {
				if s.Time >= 4 {
					Expect(s.Duty).To(BeZero())
				}
				if s.Time > 4.01 {
					Expect(s.Reset).To(BeTrue())
				}
			}
		})
	})

	Context("with a reversing profile", func() {
		It("follows the sign of the reference", func() {
			res := run(config.GetPreset("reverse"))

			Expect(meanPlantSpeed(res, 3, 5)).To(BeNumerically(">", 5))
			Expect(meanPlantSpeed(res, 8, 10)).To(BeNumerically("<", -5))
		})
	})

	Context("under saturation", func() {
		It("recovers faster with anti-windup", func() {
			withAW := config.GetPreset("windup")
			withoutAW := config.GetPreset("windup")
			withoutAW.Motor.AntiWindup = false

			a := rmsError(run(withAW), 6, 10)
			b := rmsError(run(withoutAW), 6, 10)
			Expect(a).To(BeNumerically("<", b))
		})
	})

	Context("when canceled", func() {
		It("stops and returns a partial result", func() {
			exp, err := experiment.New(config.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := exp.Run(ctx)
			Expect(err).To(MatchError(dynamo.ErrContextCanceled))
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Canceled).To(BeTrue())
			Expect(res.Samples).To(BeEmpty())
		})
	})
})
