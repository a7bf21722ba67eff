package progress_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/resonate-audio/stem-worker/src/internal/application/progress"
)

var _ = Describe("Extractor", func() {
	var extractor *progress.Extractor

	BeforeEach(func() {
		extractor = progress.NewExtractor()
	})

	Describe("Reading the engine's progress meter", func() {
		It("reports the percentage from a complete meter line", func() {
			percentage, changed := extractor.Consume(" 45%|████      | 54/120\r")
			Expect(changed).To(BeTrue())
			Expect(percentage).To(Equal(45))
		})

		It("reports nothing when no meter is present", func() {
			_, changed := extractor.Consume("Selected model is a bag of 1 models\n")
			Expect(changed).To(BeFalse())
		})

		It("reports the last percentage when a chunk holds several", func() {
			percentage, changed := extractor.Consume(" 10%|█ \r 20%|██ \r 30%|███ \r")
			Expect(changed).To(BeTrue())
			Expect(percentage).To(Equal(30))
		})

		It("does not require the percentage and bar to arrive together", func() {
			By("consuming a chunk that cuts the meter mid-pattern", func() {
				_, changed := extractor.Consume(" 45%")
				Expect(changed).To(BeFalse())
			})

			By("consuming the remainder of the meter", func() {
				percentage, changed := extractor.Consume("|████      | 54/120\r")
				Expect(changed).To(BeTrue())
				Expect(percentage).To(Equal(45))
			})
		})

		It("suppresses repeats of the same percentage", func() {
			_, changed := extractor.Consume(" 45%|████ \r")
			Expect(changed).To(BeTrue())

			_, changed = extractor.Consume(" 45%|████▏ \r")
			Expect(changed).To(BeFalse())

			percentage, changed := extractor.Consume(" 46%|████▎ \r")
			Expect(changed).To(BeTrue())
			Expect(percentage).To(Equal(46))
		})

		It("reports a value again if the meter moves away and back", func() {
			_, changed := extractor.Consume(" 45%|████ \r")
			Expect(changed).To(BeTrue())

			_, changed = extractor.Consume(" 46%|████ \r")
			Expect(changed).To(BeTrue())

			percentage, changed := extractor.Consume(" 45%|████ \r")
			Expect(changed).To(BeTrue())
			Expect(percentage).To(Equal(45))
		})

		It("keeps reporting across a long run of filler output", func() {
			filler := make([]byte, 300)
			for i := range filler {
				filler[i] = 'x'
			}

			for i := 0; i < 20; i++ {
				_, _ = extractor.Consume(string(filler))
			}

			percentage, changed := extractor.Consume(" 99%|█████████▉ \r")
			Expect(changed).To(BeTrue())
			Expect(percentage).To(Equal(99))
		})
	})
})
