package meter

import (
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/cosem"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/extractor"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/rs/zerolog"
)

func newPipeline(cfg config.ReaderConfig, extensions []cosem.RegisterMapping, idCodes []obis.Code, log zerolog.Logger) *pipeline {
	opts := []cosem.Option{
		cosem.WithExtensions(extensions...),
		cosem.WithFallbackID(cfg.FallbackID),
		cosem.WithDetectionAttempts(cfg.IDDetectionAttempts),
		cosem.WithLogger(log),
	}
	if len(idCodes) > 0 {
		opts = append(opts, cosem.WithIdentityCodes(idCodes...))
	}
	catalog := cosem.NewCatalog(opts...)
	return &pipeline{
		catalog:       catalog,
		extractor:     extractor.New(catalog, log),
		useSystemTime: cfg.UseSystemTime,
		now:           time.Now,
		log:           log,
	}
}

func (p *pipeline) register(observer Observer) {
	p.observers = append(p.observers, observer)
}

// timestamp prefers the message time over the clock object. Once a telegram
// carries neither, system time is used for good.
func (p *pipeline) timestamp(objects *dlms.Objects, messageTime time.Time) time.Time {
	if p.useSystemTime {
		return p.now().UTC()
	}
	if !messageTime.IsZero() {
		return messageTime
	}
	if ts, ok := p.catalog.ResolveTimestamp(objects); ok {
		return ts
	}
	p.log.Warn().Msg("Telegram carries no timestamp, using system time from now on")
	p.useSystemTime = true
	return p.now().UTC()
}

func (p *pipeline) publish(objects *dlms.Objects, messageTime time.Time) {
	source := p.catalog.ResolveIdentity(objects)
	ts := p.timestamp(objects, messageTime)

	measurements := p.extractor.Extract(objects, source, ts)
	if len(measurements) == 0 {
		p.log.Debug().Str("source", source).Msg("Telegram without known registers")
		return
	}
	for _, observer := range p.observers {
		observer.Notify(measurements)
	}
}
