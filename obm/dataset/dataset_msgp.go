package dataset

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/onlinematch/obmrl/obm/internal/codec"
)

// EncodeMsg implements msgp.Encodable.
func (d *Dataset) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(4); err != nil {
		return err
	}
	if err := w.WriteString("problem"); err != nil {
		return err
	}
	if err := w.WriteString(d.Problem); err != nil {
		return err
	}
	if err := w.WriteString("u_size"); err != nil {
		return err
	}
	if err := w.WriteInt(d.USize); err != nil {
		return err
	}
	if err := w.WriteString("v_size"); err != nil {
		return err
	}
	if err := w.WriteInt(d.VSize); err != nil {
		return err
	}
	if err := w.WriteString("instances"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(d.Instances))); err != nil {
		return err
	}
	for i := range d.Instances {
		if err := d.Instances[i].EncodeMsg(w); err != nil {
			return msgp.WrapError(err, "instances", i)
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable. Unknown keys are skipped.
func (d *Dataset) DecodeMsg(r *msgp.Reader) error {
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
		case "problem":
			d.Problem, err = r.ReadString()
		case "u_size":
			d.USize, err = r.ReadInt()
		case "v_size":
			d.VSize, err = r.ReadInt()
		case "instances":
			var sz uint32
			if sz, err = r.ReadArrayHeader(); err != nil {
				return msgp.WrapError(err, key)
			}
			d.Instances = make([]Instance, sz)
			for i := range d.Instances {
				if err = d.Instances[i].DecodeMsg(r); err != nil {
					return msgp.WrapError(err, key, i)
				}
			}
		default:
			err = r.Skip()
		}
		if err != nil {
			return msgp.WrapError(err, key)
		}
	}
	return nil
}

// EncodeMsg implements msgp.Encodable.
func (z *Instance) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(3); err != nil {
		return err
	}
	if err := w.WriteString("weights"); err != nil {
		return err
	}
	if err := codec.WriteFloats(w, z.Weights); err != nil {
		return err
	}
	if err := w.WriteString("optimal"); err != nil {
		return err
	}
	if err := w.WriteFloat64(z.Optimal); err != nil {
		return err
	}
	if err := w.WriteString("greedy"); err != nil {
		return err
	}
	return w.WriteFloat64(z.Greedy)
}

// DecodeMsg implements msgp.Decodable.
func (z *Instance) DecodeMsg(r *msgp.Reader) error {
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
		case "weights":
			z.Weights, err = codec.ReadFloats(r)
		case "optimal":
			z.Optimal, err = r.ReadFloat64()
		case "greedy":
			z.Greedy, err = r.ReadFloat64()
		default:
			err = fmt.Errorf("unexpected instance field %q", key)
		}
		if err != nil {
			return msgp.WrapError(err, key)
		}
	}
	return nil
}
