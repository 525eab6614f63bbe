package cosem

import (
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithExtensions adds vendor registers. A mapping replaces the default with the
// same Key unless it is Exact.
func WithExtensions(mappings ...RegisterMapping) Option {
	return func(o *catalogOptions) {
		o.extensions = append(o.extensions, mappings...)
	}
}

// WithIdentityCodes adds identity objects searched before the defaults.
func WithIdentityCodes(codes ...obis.Code) Option {
	return func(o *catalogOptions) {
		o.idCodes = append(o.idCodes, codes...)
	}
}

func WithClockCode(code obis.Code) Option {
	return func(o *catalogOptions) {
		o.clockCode = code
	}
}

// WithFallbackID sets the id used while no identity object was found.
// Empty keeps the generated default.
func WithFallbackID(id string) Option {
	return func(o *catalogOptions) {
		o.fallbackID = id
	}
}

// WithDetectionAttempts limits how many telegrams may lack an identity object
// before the fallback id is used for good. Values below 1 keep the default.
func WithDetectionAttempts(n int) Option {
	return func(o *catalogOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *catalogOptions) {
		o.log = log
	}
}

func NewCatalog(opts ...Option) *Catalog {
	o := catalogOptions{
		clockCode: obis.Clock,
		attempts:  DefaultDetectionAttempts,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Catalog{
		byKey:        make(map[obis.Key]RegisterMapping, len(DefaultRegisters)+len(o.extensions)),
		exact:        make(map[obis.Code]RegisterMapping),
		clockCode:    o.clockCode,
		fallbackID:   o.fallbackID,
		attemptsLeft: o.attempts,
		log:          o.log,
	}
	if c.fallbackID == "" {
		c.fallbackID = uuid.NewString()
	}

	for _, m := range DefaultRegisters {
		c.byKey[m.Code.Key()] = m
	}
	for _, m := range o.extensions {
		if m.Exact {
			c.exact[m.Code] = m
			continue
		}
		c.byKey[m.Code.Key()] = m
	}

	c.idCodes = append(c.idCodes, o.idCodes...)
	c.idCodes = append(c.idCodes, DefaultIdentityCodes...)
	return c
}

// Register returns the mapping for a register code.
func (c *Catalog) Register(code obis.Code) (RegisterMapping, bool) {
	if m, ok := c.exact[code]; ok {
		return m, true
	}
	m, ok := c.byKey[code.Key()]
	return m, ok
}

func (c *Catalog) FallbackID() string {
	return c.fallbackID
}

// ResolveIdentity returns the meter id found in objects.
//
// The first id found is kept for the lifetime of the catalog. Every telegram
// without a usable identity object uses one detection attempt and yields the
// fallback id. Once no attempts are left the fallback id is final.
func (c *Catalog) ResolveIdentity(objects *dlms.Objects) string {
	if c.id != "" {
		return c.id
	}
	if c.pinned {
		return c.fallbackID
	}

	if id, ok := c.findIdentity(objects); ok {
		c.id = id
		c.log.Info().Str("meter_id", id).Msg("Detected meter id")
		return id
	}

	c.attemptsLeft--
	if c.attemptsLeft <= 0 {
		c.pinned = true
		c.log.Warn().Str("fallback_id", c.fallbackID).Msg("No meter id found in telegrams, using fallback id from now on")
	} else {
		c.log.Debug().Int("attempts_left", c.attemptsLeft).Msg("No meter id in telegram")
	}
	return c.fallbackID
}

func (c *Catalog) findIdentity(objects *dlms.Objects) (string, bool) {
	if objects == nil {
		return "", false
	}
	for _, code := range c.idCodes {
		obj, ok := objects.Get(code)
		if !ok || obj.Value == nil {
			continue
		}
		if obj.Kind != dlms.KindData {
			c.log.Debug().Str("obis", obj.Code.String()).Str("kind", obj.Kind.String()).Msg("Identity object has unexpected kind")
			continue
		}
		if id, ok := obj.Value.Text(); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// ResolveTimestamp returns the value of the clock object, if it holds a valid date-time.
func (c *Catalog) ResolveTimestamp(objects *dlms.Objects) (time.Time, bool) {
	if objects == nil {
		return time.Time{}, false
	}
	obj, ok := objects.Get(c.clockCode)
	if !ok || obj.Value == nil {
		return time.Time{}, false
	}
	return obj.Value.Time()
}
