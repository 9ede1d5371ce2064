// Package tesseract implements text recognition with the Tesseract engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/ocr"
)

// DefaultLanguages covers English, Norwegian, Danish, Swedish, German and French.
var DefaultLanguages = []string{"eng", "nor", "dan", "swe", "deu", "fra"}

// engineConfig selects the accurate LSTM engine and loads the word
// dictionaries used for language correction. These are init-only parameters
// and are read from a config file when the engine starts.
const engineConfig = `tessedit_ocr_engine_mode 1
load_system_dawg 1
load_freq_dawg 1
`

// Recognizer implements domain.Recognizer. One Tesseract client is reused and
// calls are serialized.
type Recognizer struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
	dpi       int
	config    string
}

// NewRecognizer creates a recognizer for the given languages. dpi tells the
// engine the resolution of the images it will receive.
func NewRecognizer(languages []string, dpi float64) (*Recognizer, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	config, err := writeEngineConfig()
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	fail := func(step string, err error) (*Recognizer, error) {
		client.Close()
		os.Remove(config)
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := client.SetConfigFile(config); err != nil {
		return fail("set engine config", err)
	}
	if err := client.SetLanguage(languages...); err != nil {
		return fail("set languages", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return fail("set page segmentation", err)
	}
	if err := client.SetVariable("user_defined_dpi", strconv.Itoa(int(dpi))); err != nil {
		return fail("set dpi", err)
	}

	return &Recognizer{client: client, languages: languages, dpi: int(dpi), config: config}, nil
}

func writeEngineConfig() (string, error) {
	f, err := os.CreateTemp("", "image-extractor-tesseract-*.cfg")
	if err != nil {
		return "", fmt.Errorf("create engine config: %w", err)
	}
	if _, err := f.WriteString(engineConfig); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write engine config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write engine config: %w", err)
	}
	return f.Name(), nil
}

// Recognize returns one observation per recognized text line.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	bounds := img.Bounds().Sub(img.Bounds().Min)
	out := make([]domain.Observation, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, domain.Observation{
			Box:        ocr.NormalizeBox(b.Box, bounds),
			Text:       text,
			Confidence: b.Confidence / 100,
		})
	}
	return out, nil
}

// Close releases the Tesseract client and removes its config file.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.client.Close()
	if rmErr := os.Remove(r.config); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
