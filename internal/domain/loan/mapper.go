package loan

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// fieldOrder is the position of each field in the ledger's getLoan tuple.
var fieldOrder = [...]string{
	"borrower",
	"amountRequested",
	"amountFunded",
	"termDuration",
	"interestRate",
	"createdAt",
	"vouchingDeadline",
	"crowdfundingDeadline",
	"repaymentDeadline",
	"gracePeriodEnd",
	"state",
	"voucherCount",
}

// Decode normalizes a raw ledger loan record into a Loan. raw may be the
// positional tuple ([]any), a named-field map, or a struct whose fields carry
// the same names (json tag or lowerCamel field name).
func Decode(id uint64, raw any) (Loan, error) {
	fields, err := normalize(raw)
	if err != nil {
		return Loan{}, err
	}
	return fromFields(id, fields)
}

func normalize(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	case map[string]any:
		return v, nil
	case []any:
		// abi.Unpack wraps a single tuple output in a one-element slice.
		if len(v) == 1 {
			return normalize(v[0])
		}
		if len(v) < len(fieldOrder) {
			return nil, fmt.Errorf("%w: tuple has %d values, want %d", ErrMalformedRecord, len(v), len(fieldOrder))
		}
		out := make(map[string]any, len(fieldOrder))
		for i, name := range fieldOrder {
			out[name] = v[i]
		}
		return out, nil
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: unsupported shape %T", ErrMalformedRecord, raw)
	}
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		out[structKey(f)] = rv.Field(i).Interface()
	}
	return out, nil
}

func structKey(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	r, size := utf8.DecodeRuneInString(f.Name)
	return string(unicode.ToLower(r)) + f.Name[size:]
}

func fromFields(id uint64, m map[string]any) (Loan, error) {
	var (
		l   = Loan{ID: id}
		err error
	)
	get := func(name string) (any, error) {
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrMalformedRecord, name)
		}
		return v, nil
	}
	field := func(name string, decode func(any) error) {
		if err != nil {
			return
		}
		var v any
		if v, err = get(name); err != nil {
			return
		}
		if derr := decode(v); derr != nil {
			err = fmt.Errorf("%w: field %s: %v", ErrMalformedRecord, name, derr)
		}
	}

	field("borrower", func(v any) (e error) { l.Borrower, e = toAddress(v); return })
	field("amountRequested", func(v any) (e error) { l.AmountRequested, e = toBig(v); return })
	field("amountFunded", func(v any) (e error) { l.AmountFunded, e = toBig(v); return })
	field("termDuration", func(v any) (e error) { l.TermDuration, e = toUint64(v); return })
	field("interestRate", func(v any) (e error) { l.InterestRate, e = toBps(v); return })
	field("createdAt", func(v any) (e error) { l.CreatedAt, e = toUint64(v); return })
	field("vouchingDeadline", func(v any) (e error) { l.VouchingDeadline, e = toUint64(v); return })
	field("crowdfundingDeadline", func(v any) (e error) { l.CrowdfundingDeadline, e = toUint64(v); return })
	field("repaymentDeadline", func(v any) (e error) { l.RepaymentDeadline, e = toUint64(v); return })
	field("gracePeriodEnd", func(v any) (e error) { l.GracePeriodEnd, e = toUint64(v); return })
	field("state", func(v any) (e error) { l.State, e = toState(v); return })
	field("voucherCount", func(v any) (e error) { l.VoucherCount, e = toUint64(v); return })
	if err != nil {
		return Loan{}, err
	}

	// The ledger returns a zeroed record for unknown ids.
	if l.Borrower == (common.Address{}) {
		return Loan{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return l, nil
}

func toBig(v any) (*big.Int, error) {
	var out *big.Int
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		out = new(big.Int).Set(x)
	case big.Int:
		out = new(big.Int).Set(&x)
	case uint8:
		out = new(big.Int).SetUint64(uint64(x))
	case uint16:
		out = new(big.Int).SetUint64(uint64(x))
	case uint32:
		out = new(big.Int).SetUint64(uint64(x))
	case uint64:
		out = new(big.Int).SetUint64(x)
	case uint:
		out = new(big.Int).SetUint64(uint64(x))
	case int:
		out = big.NewInt(int64(x))
	case int32:
		out = big.NewInt(int64(x))
	case int64:
		out = big.NewInt(x)
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("non-integer %v", x)
		}
		out, _ = new(big.Float).SetFloat64(x).Int(nil)
	case json.Number:
		return toBig(string(x))
	case string:
		s := strings.TrimSpace(x)
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("not an integer: %q", x)
		}
		out = n
	default:
		return nil, fmt.Errorf("unsupported integer type %T", v)
	}
	if out.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", out)
	}
	return out, nil
}

func toUint64(v any) (uint64, error) {
	n, err := toBig(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value %s overflows uint64", n)
	}
	return n.Uint64(), nil
}

func toBps(v any) (Bps, error) {
	n, err := toBig(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return IneligibleRate, nil
	}
	return Bps(n.Uint64()), nil
}

func toState(v any) (State, error) {
	n, err := toUint64(v)
	if err != nil {
		return 0, err
	}
	s := State(n)
	if n > math.MaxUint8 || !s.Valid() {
		return 0, fmt.Errorf("unknown state %d", n)
	}
	return s, nil
}

func toAddress(v any) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case *common.Address:
		if x == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *x, nil
	case [20]byte:
		return common.Address(x), nil
	case string:
		if !common.IsHexAddress(x) {
			return common.Address{}, fmt.Errorf("invalid address %q", x)
		}
		return common.HexToAddress(x), nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", v)
	}
}
