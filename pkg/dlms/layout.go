package dlms

import (
	"fmt"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/rs/zerolog"
)

type LayoutKind int

const (
	// LayoutPushList bodies start with the push object list describing the remaining elements.
	LayoutPushList LayoutKind = iota
	// LayoutObisValuePairs bodies alternate logical names and values.
	LayoutObisValuePairs
	// LayoutFixedOrder bodies hold the clock followed by values in a known register order.
	LayoutFixedOrder
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutPushList:
		return "push_list"
	case LayoutObisValuePairs:
		return "obis_pairs"
	case LayoutFixedOrder:
		return "fixed"
	}
	return fmt.Sprintf("layout(%d)", int(k))
}

// Layout selects how a notification body maps to objects.
type Layout struct {
	Kind LayoutKind
	// Order lists the register codes following the clock, for LayoutFixedOrder only.
	Order []obis.Code
}

func PushList() Layout {
	return Layout{Kind: LayoutPushList}
}

func ObisValuePairs() Layout {
	return Layout{Kind: LayoutObisValuePairs}
}

func FixedOrder(order ...obis.Code) Layout {
	return Layout{Kind: LayoutFixedOrder, Order: order}
}

func (l Layout) decode(body Data, log zerolog.Logger) (*Objects, error) {
	elements, ok := body.Elements()
	if !ok || len(elements) == 0 {
		return NewObjects(), fmt.Errorf("%w: body is not a non-empty array or structure", ErrLayoutMismatch)
	}
	switch l.Kind {
	case LayoutPushList:
		return decodePushList(elements, log)
	case LayoutObisValuePairs:
		return decodeObisValuePairs(elements, log), nil
	case LayoutFixedOrder:
		return decodeFixedOrder(elements, l.Order, log), nil
	}
	return NewObjects(), fmt.Errorf("%w: unknown %s", ErrLayoutMismatch, l.Kind)
}

type pushObject struct {
	classID   uint16
	code      obis.Code
	attribute int8
}

func parsePushObject(d Data) (pushObject, error) {
	fields, ok := d.Elements()
	if !ok || len(fields) < 3 {
		return pushObject{}, fmt.Errorf("push object is not a capture object definition: %s", d)
	}
	class, ok := fields[0].Value.(uint64)
	if !ok {
		return pushObject{}, fmt.Errorf("push object class id %s", fields[0])
	}
	name, ok := fields[1].Bytes()
	if !ok || len(name) != 6 {
		return pushObject{}, fmt.Errorf("push object logical name %s", fields[1])
	}
	attribute, ok := fields[2].Value.(int64)
	if !ok {
		return pushObject{}, fmt.Errorf("push object attribute index %s", fields[2])
	}
	return pushObject{
		classID:   uint16(class),
		code:      obis.Code{A: name[0], B: name[1], C: name[2], D: name[3], E: name[4], F: name[5]},
		attribute: int8(attribute),
	}, nil
}

func decodePushList(elements []Data, log zerolog.Logger) (*Objects, error) {
	objects := NewObjects()
	list, ok := elements[0].Elements()
	if !ok {
		return objects, fmt.Errorf("%w: first element is not a push object list", ErrLayoutMismatch)
	}
	if len(list) != len(elements) {
		log.Debug().Int("described", len(list)).Int("values", len(elements)).
			Msg("Push object list and value count differ")
	}

	for i, entry := range list {
		def, err := parsePushObject(entry)
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("Skipping push object")
			continue
		}
		obj := objects.declare(def.code, def.classID, kindOfClass(def.classID))

		// The first entry describes the push setup itself, its value is the list.
		if i == 0 {
			continue
		}
		if i >= len(elements) {
			log.Debug().Str("obis", def.code.String()).Msg("No value pushed for object")
			continue
		}
		applyAttribute(obj, def.attribute, elements[i], log)
	}
	return objects, nil
}

// applyAttribute stores the value attribute of an object, and the scaler of registers.
func applyAttribute(obj *Object, attribute int8, value Data, log zerolog.Logger) {
	switch {
	case attribute == 2:
		v := value
		obj.Value = &v
	case attribute == 3 && obj.Kind == KindRegister:
		fields, ok := value.Elements()
		if !ok || len(fields) < 1 {
			log.Debug().Str("obis", obj.Code.String()).Msg("Malformed scaler_unit")
			return
		}
		scaler, ok := fields[0].Value.(int64)
		if !ok {
			log.Debug().Str("obis", obj.Code.String()).Msg("Malformed scaler_unit")
			return
		}
		obj.Scaler = int8(scaler)
		obj.HasScaler = true
	}
}

func asLogicalName(d Data) (obis.Code, bool) {
	if d.Type != TypeOctetString {
		return obis.Code{}, false
	}
	b, _ := d.Bytes()
	code, err := obis.FromBytes(b)
	return code, err == nil
}

// inferKind treats electricity codes as registers whatever their value type,
// so text values reach the extractor which coerces or logs them.
func inferKind(code obis.Code, value Data) ObjectKind {
	switch {
	case code.Equal(obis.Clock):
		return KindClock
	case code.A == 1, value.IsNumeric():
		return KindRegister
	}
	return KindData
}

func decodeObisValuePairs(elements []Data, log zerolog.Logger) *Objects {
	objects := NewObjects()
	for i := 0; i < len(elements); i++ {
		// Some meters wrap each pair in a structure.
		if fields, ok := elements[i].Elements(); ok && len(fields) >= 2 {
			if code, ok := asLogicalName(fields[0]); ok {
				objects.Add(code, inferKind(code, fields[1]), fields[1])
			}
			continue
		}

		code, ok := asLogicalName(elements[i])
		if !ok {
			log.Debug().Int("index", i).Msg("Skipping value without preceding OBIS code")
			continue
		}
		if i+1 >= len(elements) {
			log.Debug().Str("obis", code.String()).Msg("OBIS code at end of telegram has no value")
			break
		}
		if _, next := asLogicalName(elements[i+1]); next {
			log.Debug().Str("obis", code.String()).Msg("OBIS code not followed by a value")
			continue
		}
		value := elements[i+1]
		objects.Add(code, inferKind(code, value), value)
		i++
	}
	return objects
}

func decodeFixedOrder(elements []Data, order []obis.Code, log zerolog.Logger) *Objects {
	objects := NewObjects()
	objects.Add(obis.Clock, KindClock, elements[0])

	values := elements[1:]
	if len(values) != len(order) {
		log.Debug().Int("expected", len(order)).Int("received", len(values)).
			Msg("Register count differs from fixed layout")
	}
	for i, code := range order {
		if i >= len(values) {
			break
		}
		objects.Add(code, KindRegister, values[i])
	}
	return objects
}
