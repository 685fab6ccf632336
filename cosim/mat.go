package cosim

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MAT-file level 5 data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Class is the MATLAB array class of a variable.
type Class uint8

const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassChar   Class = 4
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

func (c Class) numeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

const headerLen = 128

var errMalformed = errors.New("malformed MAT-file")

// Array is a decoded MAT-file variable. Values and cells are stored in column
// major order like MATLAB does. Imaginary parts are dropped.
type Array struct {
	Name  string
	Class Class
	Dims  []int
	Real  []float64
	Cells []*Array
}

// Len is the number of elements.
func (a *Array) Len() int {
	if len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// Rows and Cols view the array as 2-D, folding trailing dimensions into Cols.
func (a *Array) Rows() int {
	if len(a.Dims) == 0 {
		return 0
	}
	return a.Dims[0]
}

func (a *Array) Cols() int {
	if a.Rows() == 0 {
		return 0
	}
	return a.Len() / a.Rows()
}

// ReadMAT decodes every matrix variable of a level 5 MAT-file.
func ReadMAT(r io.Reader) (map[string]*Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: short header", errMalformed)
	}
	var d decoder
	switch string(data[126:128]) {
	case "IM":
		d.order = binary.LittleEndian
	case "MI":
		d.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endian indicator %q", errMalformed, data[126:128])
	}

	vars := map[string]*Array{}
	buf := data[headerLen:]
	for len(buf) > 0 {
		typ, payload, rest, err := d.element(buf)
		if err != nil {
			return nil, err
		}
		buf = rest
		if typ == miCOMPRESSED {
			if typ, payload, err = d.inflate(payload); err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			continue
		}
		a, err := d.matrix(payload)
		if err != nil {
			return nil, err
		}
		vars[a.Name] = a
	}
	return vars, nil
}

type decoder struct {
	order binary.ByteOrder
}

// element splits off one data element. Small elements pack the tag and up to
// four bytes of data into eight bytes; compressed elements are not padded.
func (d decoder) element(buf []byte) (uint32, []byte, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, nil, fmt.Errorf("%w: truncated tag", errMalformed)
	}
	w := d.order.Uint32(buf)
	if size := w >> 16; size != 0 {
		if size > 4 {
			return 0, nil, nil, fmt.Errorf("%w: small element of %d bytes", errMalformed, size)
		}
		return w & 0xffff, buf[4 : 4+size], buf[8:], nil
	}
	size := int(d.order.Uint32(buf[4:]))
	if size > len(buf)-8 {
		return 0, nil, nil, fmt.Errorf("%w: element of %d bytes exceeds file", errMalformed, size)
	}
	next := 8 + size
	if w != miCOMPRESSED {
		next = min(8+(size+7)/8*8, len(buf))
	}
	return w, buf[8 : 8+size], buf[next:], nil
}

func (d decoder) inflate(payload []byte) (uint32, []byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	typ, inner, _, err := d.element(raw)
	return typ, inner, err
}

func (d decoder) matrix(payload []byte) (*Array, error) {
	if len(payload) == 0 {
		return &Array{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}
	typ, flags, rest, err := d.element(payload)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, fmt.Errorf("%w: missing array flags", errMalformed)
	}
	w := d.order.Uint32(flags)
	a := &Array{Class: Class(w & 0xff)}
	complexData := w&0x0800 != 0

	typ, dims, rest, err := d.element(rest)
	if err != nil {
		return nil, err
	}
	if typ != miINT32 || len(dims)%4 != 0 {
		return nil, fmt.Errorf("%w: missing dimensions", errMalformed)
	}
	for i := 0; i < len(dims); i += 4 {
		n := int32(d.order.Uint32(dims[i:]))
		if n < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", errMalformed, n)
		}
		a.Dims = append(a.Dims, int(n))
	}

	_, name, rest, err := d.element(rest)
	if err != nil {
		return nil, err
	}
	a.Name = string(name)

	switch {
	case a.Class == ClassCell:
		for i := 0; i < a.Len(); i++ {
			var cell []byte
			typ, cell, rest, err = d.element(rest)
			if err != nil {
				return nil, err
			}
			if typ != miMATRIX {
				return nil, fmt.Errorf("%w: cell %d of %q is not a matrix", errMalformed, i, a.Name)
			}
			c, err := d.matrix(cell)
			if err != nil {
				return nil, err
			}
			a.Cells = append(a.Cells, c)
		}
	case a.Class.numeric():
		typ, data, rest, err := d.element(rest)
		if err != nil {
			return nil, err
		}
		if a.Real, err = d.numbers(typ, data); err != nil {
			return nil, err
		}
		if len(a.Real) != a.Len() {
			return nil, fmt.Errorf("%w: %q has %d values for %d elements", errMalformed, a.Name, len(a.Real), a.Len())
		}
		if complexData {
			if _, _, _, err := d.element(rest); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q has unsupported class %d", errMalformed, a.Name, a.Class)
	}
	return a, nil
}

// numbers converts typed data to float64. The storage type may be narrower
// than the array class.
func (d decoder) numbers(typ uint32, p []byte) ([]float64, error) {
	var size int
	switch typ {
	case miINT8, miUINT8:
		size = 1
	case miINT16, miUINT16:
		size = 2
	case miINT32, miUINT32, miSINGLE:
		size = 4
	case miDOUBLE, miINT64, miUINT64:
		size = 8
	default:
		return nil, fmt.Errorf("%w: unsupported data type %d", errMalformed, typ)
	}
	if len(p)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of type %d", errMalformed, len(p), typ)
	}
	out := make([]float64, len(p)/size)
	for i := range out {
		b := p[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(b)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(b)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(b)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(b))
		}
	}
	return out, nil
}
