package obm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tinylib/msgp/msgp"
	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/internal/codec"
	"github.com/onlinematch/obmrl/obm/nn"
)

// ErrCheckpointMismatch is returned when a checkpoint does not fit the policy
// it is loaded into.
var ErrCheckpointMismatch = errors.New("checkpoint does not match policy")

// SaveCheckpoint writes the policy's parameters to path (".msgp.lz4").
// The record is a map {profile, params: {name: matrix}} with sorted names.
func SaveCheckpoint(path string, p *Policy) error {
	params := p.Params()
	names := sortedParamNames(params)
	err := codec.WriteFile(path, func(w *msgp.Writer) error {
		if err := w.WriteMapHeader(2); err != nil {
			return err
		}
		if err := w.WriteString("profile"); err != nil {
			return err
		}
		if err := w.WriteString(p.Profile()); err != nil {
			return err
		}
		if err := w.WriteString("params"); err != nil {
			return err
		}
		if err := w.WriteMapHeader(uint32(len(names))); err != nil {
			return err
		}
		for _, name := range names {
			if err := w.WriteString(name); err != nil {
				return err
			}
			if err := codec.WriteDense(w, params[name]); err != nil {
				return msgp.WrapError(err, name)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logrus.Infof("Saved %d %s parameters to %s", len(names), p.Profile(), path)
	return nil
}

// LoadCheckpoint overwrites the policy's parameters with the ones stored at
// path. Profile, parameter names and shapes must all match; on mismatch the
// policy is left untouched.
func LoadCheckpoint(path string, p *Policy) error {
	var profile string
	loaded := nn.Params{}
	err := codec.ReadFile(path, func(r *msgp.Reader) error {
		n, err := r.ReadMapHeader()
		if err != nil {
			return err
		}
		for ; n > 0; n-- {
			key, err := r.ReadString()
			if err != nil {
				return err
			}
			switch key {
			case "profile":
				if profile, err = r.ReadString(); err != nil {
					return msgp.WrapError(err, key)
				}
			case "params":
				count, err := r.ReadMapHeader()
				if err != nil {
					return msgp.WrapError(err, key)
				}
				for ; count > 0; count-- {
					name, err := r.ReadString()
					if err != nil {
						return msgp.WrapError(err, key)
					}
					if loaded[name], err = codec.ReadDense(r); err != nil {
						return msgp.WrapError(err, key, name)
					}
				}
			default:
				if err := r.Skip(); err != nil {
					return msgp.WrapError(err, key)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if profile != p.Profile() {
		return fmt.Errorf("%s: profile %q, policy is %q: %w", path, profile, p.Profile(), ErrCheckpointMismatch)
	}
	params := p.Params()
	if len(loaded) != len(params) {
		return fmt.Errorf("%s: %d parameters, policy has %d: %w", path, len(loaded), len(params), ErrCheckpointMismatch)
	}
	for name, dst := range params {
		src, ok := loaded[name]
		if !ok {
			return fmt.Errorf("%s: missing parameter %q: %w", path, name, ErrCheckpointMismatch)
		}
		if !sameShape(src, dst) {
			sr, sc := src.Dims()
			dr, dc := dst.Dims()
			return fmt.Errorf("%s: parameter %q is %dx%d, policy expects %dx%d: %w", path, name, sr, sc, dr, dc, ErrCheckpointMismatch)
		}
	}
	for name, dst := range params {
		dst.Copy(loaded[name])
	}
	logrus.Infof("Loaded %d %s parameters from %s", len(params), profile, path)
	return nil
}

func sortedParamNames(params nn.Params) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameShape(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}
