package cosem

import (
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
)

func reg(code string, t types.MeasurementType) RegisterMapping {
	return RegisterMapping{Code: obis.MustParse(code), Type: t, Scaling: 1}
}

func scaled(code string, t types.MeasurementType, scaling float64) RegisterMapping {
	return RegisterMapping{Code: obis.MustParse(code), Type: t, Scaling: scaling}
}

// DefaultRegisters covers the registers pushed by common three phase meters.
var DefaultRegisters = []RegisterMapping{
	reg("1.0.1.7.0.255", types.ActivePowerP),
	reg("1.0.2.7.0.255", types.ActivePowerN),
	reg("1.0.3.7.0.255", types.ReactivePowerP),
	reg("1.0.4.7.0.255", types.ReactivePowerN),

	scaled("1.0.13.7.0.255", types.PowerFactor, 0.001),
	reg("1.0.14.7.0.255", types.NetFrequency),

	reg("1.0.21.7.0.255", types.ActivePowerPL1),
	reg("1.0.22.7.0.255", types.ActivePowerNL1),
	reg("1.0.23.7.0.255", types.ReactivePowerPL1),
	reg("1.0.24.7.0.255", types.ReactivePowerNL1),
	reg("1.0.31.7.0.255", types.CurrentL1),
	reg("1.0.32.7.0.255", types.VoltageL1),

	reg("1.0.41.7.0.255", types.ActivePowerPL2),
	reg("1.0.42.7.0.255", types.ActivePowerNL2),
	reg("1.0.43.7.0.255", types.ReactivePowerPL2),
	reg("1.0.44.7.0.255", types.ReactivePowerNL2),
	reg("1.0.51.7.0.255", types.CurrentL2),
	reg("1.0.52.7.0.255", types.VoltageL2),

	reg("1.0.61.7.0.255", types.ActivePowerPL3),
	reg("1.0.62.7.0.255", types.ActivePowerNL3),
	reg("1.0.63.7.0.255", types.ReactivePowerPL3),
	reg("1.0.64.7.0.255", types.ReactivePowerNL3),
	reg("1.0.71.7.0.255", types.CurrentL3),
	reg("1.0.72.7.0.255", types.VoltageL3),

	reg("1.0.81.7.40.255", types.AngleUIL1),
	reg("1.0.81.7.51.255", types.AngleUIL2),
	reg("1.0.81.7.62.255", types.AngleUIL3),

	reg("1.1.1.8.0.255", types.ActiveEnergyP),
	reg("1.1.1.8.1.255", types.ActiveEnergyPT1),
	reg("1.1.1.8.2.255", types.ActiveEnergyPT2),
	reg("1.1.2.8.0.255", types.ActiveEnergyN),
	reg("1.1.2.8.1.255", types.ActiveEnergyNT1),
	reg("1.1.2.8.2.255", types.ActiveEnergyNT2),
	reg("1.1.3.8.0.255", types.ReactiveEnergyP),
	reg("1.1.4.8.0.255", types.ReactiveEnergyN),

	reg("1.1.5.8.0.255", types.ReactiveEnergyQ1),
	reg("1.1.6.8.0.255", types.ReactiveEnergyQ2),
	reg("1.1.7.8.0.255", types.ReactiveEnergyQ3),
	reg("1.1.8.8.0.255", types.ReactiveEnergyQ4),
}

// DefaultIdentityCodes are searched in order for the meter id.
var DefaultIdentityCodes = []obis.Code{
	obis.LogicalDeviceName,
	obis.DeviceID1,
	obis.DeviceID2,
}
