// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/peixotoh/docshim/domain"
)

// Decoder implements domain.Decoder. Field names follow the "docshim" struct
// tag, and timestamp strings decode into time.Time fields: document stores
// serialize times as RFC 3339 strings while the record package hands them
// over as time.Time, so decoding restores the round trip.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(src any, tgt any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "docshim",
		Result:     tgt,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}
