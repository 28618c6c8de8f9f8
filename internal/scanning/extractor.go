package scanning

import (
	"context"
	"fmt"

	"github.com/zombor/trip-journal/internal/imaging"
	"github.com/zombor/trip-journal/internal/llm"
)

// ReceiptFields contains the fields extracted from a receipt. All values are
// free text straight from the model; amounts and dates are deliberately not
// parsed further.
type ReceiptFields struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
}

// Extractor defines the interface for receipt field extraction
type Extractor interface {
	// ExtractFields reads a receipt image and extracts its fields
	ExtractFields(ctx context.Context, data []byte, contentType string) (*ReceiptFields, error)
	// Close closes the extractor and releases resources
	Close() error
}

// TextRecognizer turns an image into raw text. The OCR client satisfies it.
type TextRecognizer interface {
	ParseImage(ctx context.Context, jpegData []byte) (string, error)
}

// extractionPrompt asks for the four-label reply parseFields understands.
// The wording gets tuned now and then; the label contract must not change.
const extractionPrompt = `다음은 영수증에서 OCR로 읽은 텍스트야:

%s

위 텍스트에서 아래 항목을 찾아서 이 형식 그대로만 답해줘:
메뉴: (주문한 메뉴 이름. 여러 단어로 나뉘어 있으면 하나로 합쳐줘)
금액: (합계 또는 총액에 해당하는 금액)
날짜: (결제 날짜)
시간: (결제 시간)

찾을 수 없는 항목은 없음 이라고 써줘. 다른 설명은 붙이지 마.`

// OCRExtractor extracts receipt fields by running OCR on a compressed copy
// of the image and asking a language model to pull fields from the raw text
type OCRExtractor struct {
	recognizer  TextRecognizer
	model       llm.Client
	budgetBytes int
	prompt      string
}

// NewOCRExtractor creates an extractor with the default byte budget and
// prompt. A zero budget means imaging.DefaultBudgetBytes.
func NewOCRExtractor(recognizer TextRecognizer, model llm.Client, budgetBytes int) *OCRExtractor {
	if budgetBytes <= 0 {
		budgetBytes = imaging.DefaultBudgetBytes
	}
	return &OCRExtractor{
		recognizer:  recognizer,
		model:       model,
		budgetBytes: budgetBytes,
		prompt:      extractionPrompt,
	}
}

// SetPrompt overrides the extraction prompt. The replacement must keep the
// 메뉴/금액/날짜/시간 label contract and a single %s for the OCR text.
func (e *OCRExtractor) SetPrompt(prompt string) {
	if prompt != "" {
		e.prompt = prompt
	}
}

// ExtractFields decodes and compresses the upload, runs OCR, then asks the
// model for the labeled fields. A reply missing the menu or amount label is
// ErrExtractionIncomplete rather than a silently blank record.
func (e *OCRExtractor) ExtractFields(ctx context.Context, data []byte, contentType string) (*ReceiptFields, error) {
	img, err := imaging.Decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding receipt image: %w", err)
	}

	compressed, err := imaging.CompressToBudget(img, e.budgetBytes)
	if err != nil {
		return nil, fmt.Errorf("compressing receipt image: %w", err)
	}

	text, err := e.recognizer.ParseImage(ctx, compressed)
	if err != nil {
		return nil, fmt.Errorf("recognizing receipt text: %w", err)
	}

	reply, err := e.model.Complete(ctx, fmt.Sprintf(e.prompt, text), llm.Options{
		Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return nil, fmt.Errorf("extracting fields: %w", err)
	}

	fields := parseFields(reply)
	if err := fields.validate(); err != nil {
		return nil, err
	}

	return fields, nil
}

// Close closes the underlying model client
func (e *OCRExtractor) Close() error {
	return e.model.Close()
}
