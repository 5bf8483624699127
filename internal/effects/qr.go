package effects

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

func init() {
	Register("qr_overlay", func(params map[string]any) (Effect, error) {
		url := stringParam(params, "url", "")
		if url == "" {
			return nil, fmt.Errorf("qr_overlay needs a url param")
		}
		qr, err := qrcode.New(url, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr_overlay: %w", err)
		}

		// The QR image side is oversized here; Logo rescales it per
		// frame using the same anchor and margin contract.
		return &Logo{
			Image:    qr.Image(512),
			Position: stringParam(params, "position", "bottom_left"),
			Opacity:  floatParam(params, "opacity", 1.0),
			Scale:    floatParam(params, "scale", 0.15),
			Margin:   int(floatParam(params, "margin", 20)),
		}, nil
	})
}
