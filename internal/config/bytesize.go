package config

import "github.com/jmylchreest/checkarr/pkg/bytesize"

// ByteSize is a byte count that decodes from human-readable strings like
// "5MB" or "500KB" in YAML and environment values. A bare number is taken
// as bytes.
type ByteSize int64

// UnmarshalText implements encoding.TextUnmarshaler, which the viper decode
// hook uses for string config values.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := bytesize.Parse(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(parsed)
	return nil
}

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

func (b ByteSize) String() string {
	return bytesize.Format(bytesize.Size(b))
}
