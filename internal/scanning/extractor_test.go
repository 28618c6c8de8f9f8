package scanning

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/trip-journal/internal/llm"
)

// mockRecognizer is a mock implementation of TextRecognizer
type mockRecognizer struct {
	text     string
	err      error
	received []byte
}

func (m *mockRecognizer) ParseImage(ctx context.Context, jpegData []byte) (string, error) {
	m.received = jpegData
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// mockLLM is a mock implementation of llm.Client
type mockLLM struct {
	reply   string
	err     error
	prompts []string
	opts    []llm.Options
}

func (m *mockLLM) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) Close() error {
	return nil
}

func testJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: uint8(y * 12), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var _ = Describe("OCRExtractor", func() {
	var (
		recognizer *mockRecognizer
		model      *mockLLM
		extractor  *OCRExtractor
		data       []byte
		fields     *ReceiptFields
		err        error
	)

	BeforeEach(func() {
		recognizer = &mockRecognizer{text: "크루아상 5,500\n아메리카노 4,500\n합계 10,000"}
		model = &mockLLM{reply: "메뉴: 크루아상, 아메리카노\n금액: 10,000원\n날짜: 없음\n시간: 없음"}
		extractor = NewOCRExtractor(recognizer, model, 0)
		data = testJPEG()
	})

	JustBeforeEach(func() {
		fields, err = extractor.ExtractFields(context.Background(), data, "image/jpeg")
	})

	When("extraction succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pass a compressed JPEG to the recognizer", func() {
			decoded, decodeErr := jpeg.Decode(bytes.NewReader(recognizer.received))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded.Bounds().Dx()).To(Equal(20))
		})

		It("should embed the OCR text in the prompt", func() {
			Expect(model.prompts).To(HaveLen(1))
			Expect(model.prompts[0]).To(ContainSubstring("합계 10,000"))
		})

		It("should keep sampling temperature low", func() {
			Expect(model.opts[0].Temperature).NotTo(BeNil())
			Expect(*model.opts[0].Temperature).To(BeNumerically("<=", 0.2))
		})

		It("should return the parsed fields", func() {
			Expect(fields.Item).To(Equal("크루아상, 아메리카노"))
			Expect(fields.Amount).To(Equal("10,000원"))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("not an image")
		})

		It("returns a decode error without calling the providers", func() {
			Expect(err).To(HaveOccurred())
			Expect(recognizer.received).To(BeNil())
			Expect(model.prompts).To(BeEmpty())
		})
	})

	When("the recognizer fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("ocr provider: processing failed")
			recognizer.err = setupErr
		})

		It("returns the error without calling the model", func() {
			Expect(err).To(MatchError(setupErr))
			Expect(model.prompts).To(BeEmpty())
		})
	})

	When("the model fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("model unavailable")
			model.err = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})
	})

	When("the model reply is missing the amount label", func() {
		BeforeEach(func() {
			model.reply = "메뉴: 크루아상\n날짜: 없음"
		})

		It("reports the incomplete extraction", func() {
			Expect(err).To(MatchError(ErrExtractionIncomplete))
			Expect(fields).To(BeNil())
		})
	})

	When("a custom prompt is configured", func() {
		BeforeEach(func() {
			extractor.SetPrompt("영수증 텍스트:\n%s\n메뉴: 와 금액: 만 알려줘.")
		})

		It("uses the override", func() {
			Expect(model.prompts[0]).To(ContainSubstring("만 알려줘"))
		})
	})
})
