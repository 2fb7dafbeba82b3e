package utils

import (
	"github.com/mirozey/animvault/config"

	"golang.org/x/text/transform"
)

// DecodeANSI converts single-byte encoded characters to a string using
// the configured charmap.
func DecodeANSI(bs []byte) string {
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		panic(err)
	}
	return string(s)
}

// EncodeANSI converts a string to single-byte characters using the
// configured charmap.
func EncodeANSI(s string) []byte {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		panic(err)
	}
	return bs
}
