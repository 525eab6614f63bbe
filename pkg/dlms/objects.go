package dlms

import "github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"

// Objects is the ordered set of objects decoded from one telegram, keyed by the
// full six field code so that sub channels sharing a Key stay separate.
type Objects struct {
	list  []*Object
	index map[obis.Code]int
}

func NewObjects() *Objects {
	return &Objects{index: make(map[obis.Code]int)}
}

// declare returns the object for code, creating it on first use.
func (o *Objects) declare(code obis.Code, classID uint16, kind ObjectKind) *Object {
	if i, ok := o.index[code]; ok {
		return o.list[i]
	}
	obj := &Object{Code: code, ClassID: classID, Kind: kind}
	o.index[code] = len(o.list)
	o.list = append(o.list, obj)
	return obj
}

// Add stores value under code, replacing a previous value of the same code.
func (o *Objects) Add(code obis.Code, kind ObjectKind, value Data) *Object {
	obj := o.declare(code, 0, kind)
	v := value
	obj.Value = &v
	return obj
}

// Get returns the object stored under exactly this code, or else the first
// object whose Key matches.
func (o *Objects) Get(code obis.Code) (Object, bool) {
	if i, ok := o.index[code]; ok {
		return *o.list[i], true
	}
	for _, obj := range o.list {
		if obj.Code.Equal(code) {
			return *obj, true
		}
	}
	return Object{}, false
}

// All returns the objects in telegram order.
func (o *Objects) All() []Object {
	out := make([]Object, len(o.list))
	for i, obj := range o.list {
		out[i] = *obj
	}
	return out
}

func (o *Objects) Len() int {
	return len(o.list)
}
