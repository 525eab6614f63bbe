package types

// MeasurementType is the physical quantity a measurement represents.
type MeasurementType struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Unit       string `json:"unit"`
}

var (
	ActivePowerP   = MeasurementType{"ACTIVE_POWER_P", "Active Power +", "W"}
	ActivePowerPL1 = MeasurementType{"ACTIVE_POWER_P_L1", "Active Power L1 +", "W"}
	ActivePowerPL2 = MeasurementType{"ACTIVE_POWER_P_L2", "Active Power L2 +", "W"}
	ActivePowerPL3 = MeasurementType{"ACTIVE_POWER_P_L3", "Active Power L3 +", "W"}

	ActivePowerN   = MeasurementType{"ACTIVE_POWER_N", "Active Power -", "W"}
	ActivePowerNL1 = MeasurementType{"ACTIVE_POWER_N_L1", "Active Power L1 -", "W"}
	ActivePowerNL2 = MeasurementType{"ACTIVE_POWER_N_L2", "Active Power L2 -", "W"}
	ActivePowerNL3 = MeasurementType{"ACTIVE_POWER_N_L3", "Active Power L3 -", "W"}

	ReactivePowerP   = MeasurementType{"REACTIVE_POWER_P", "Reactive Power +", "VA"}
	ReactivePowerPL1 = MeasurementType{"REACTIVE_POWER_P_L1", "Reactive Power L1 +", "VA"}
	ReactivePowerPL2 = MeasurementType{"REACTIVE_POWER_P_L2", "Reactive Power L2 +", "VA"}
	ReactivePowerPL3 = MeasurementType{"REACTIVE_POWER_P_L3", "Reactive Power L3 +", "VA"}

	ReactivePowerN   = MeasurementType{"REACTIVE_POWER_N", "Reactive Power -", "VA"}
	ReactivePowerNL1 = MeasurementType{"REACTIVE_POWER_N_L1", "Reactive Power L1 -", "VA"}
	ReactivePowerNL2 = MeasurementType{"REACTIVE_POWER_N_L2", "Reactive Power L2 -", "VA"}
	ReactivePowerNL3 = MeasurementType{"REACTIVE_POWER_N_L3", "Reactive Power L3 -", "VA"}

	CurrentL1 = MeasurementType{"CURRENT_L1", "Current L1", "A"}
	CurrentL2 = MeasurementType{"CURRENT_L2", "Current L2", "A"}
	CurrentL3 = MeasurementType{"CURRENT_L3", "Current L3", "A"}

	VoltageL1 = MeasurementType{"VOLTAGE_L1", "Voltage L1", "V"}
	VoltageL2 = MeasurementType{"VOLTAGE_L2", "Voltage L2", "V"}
	VoltageL3 = MeasurementType{"VOLTAGE_L3", "Voltage L3", "V"}

	AngleUIL1 = MeasurementType{"ANGLE_UI_L1", "Angle U-I L1", "rad"}
	AngleUIL2 = MeasurementType{"ANGLE_UI_L2", "Angle U-I L2", "rad"}
	AngleUIL3 = MeasurementType{"ANGLE_UI_L3", "Angle U-I L3", "rad"}

	ActiveEnergyP   = MeasurementType{"ACTIVE_ENERGY_P", "Active Energy +", "Wh"}
	ActiveEnergyPT1 = MeasurementType{"ACTIVE_ENERGY_P_T1", "Active Energy + Tariff 1", "Wh"}
	ActiveEnergyPT2 = MeasurementType{"ACTIVE_ENERGY_P_T2", "Active Energy + Tariff 2", "Wh"}
	ActiveEnergyN   = MeasurementType{"ACTIVE_ENERGY_N", "Active Energy -", "Wh"}
	ActiveEnergyNT1 = MeasurementType{"ACTIVE_ENERGY_N_T1", "Active Energy - Tariff 1", "Wh"}
	ActiveEnergyNT2 = MeasurementType{"ACTIVE_ENERGY_N_T2", "Active Energy - Tariff 2", "Wh"}

	ReactiveEnergyP  = MeasurementType{"REACTIVE_ENERGY_P", "Reactive Energy +", "VAh"}
	ReactiveEnergyN  = MeasurementType{"REACTIVE_ENERGY_N", "Reactive Energy -", "VAh"}
	ReactiveEnergyQ1 = MeasurementType{"REACTIVE_ENERGY_Q1", "Reactive Energy +Ri Q1", "VAh"}
	ReactiveEnergyQ2 = MeasurementType{"REACTIVE_ENERGY_Q2", "Reactive Energy +Rc Q2", "VAh"}
	ReactiveEnergyQ3 = MeasurementType{"REACTIVE_ENERGY_Q3", "Reactive Energy -Ri Q3", "VAh"}
	ReactiveEnergyQ4 = MeasurementType{"REACTIVE_ENERGY_Q4", "Reactive Energy -Rc Q4", "VAh"}

	PowerFactor  = MeasurementType{"POWER_FACTOR", "Power Factor", ""}
	NetFrequency = MeasurementType{"NET_FREQUENCY", "Net Frequency any Phase", "Hz"}

	GasVolume = MeasurementType{"GAS_VOLUME", "Gas Volume", "m3"}
)

// AllMeasurementTypes lists every known type in display order.
var AllMeasurementTypes = []MeasurementType{
	ActivePowerP, ActivePowerPL1, ActivePowerPL2, ActivePowerPL3,
	ActivePowerN, ActivePowerNL1, ActivePowerNL2, ActivePowerNL3,
	ReactivePowerP, ReactivePowerPL1, ReactivePowerPL2, ReactivePowerPL3,
	ReactivePowerN, ReactivePowerNL1, ReactivePowerNL2, ReactivePowerNL3,
	CurrentL1, CurrentL2, CurrentL3,
	VoltageL1, VoltageL2, VoltageL3,
	AngleUIL1, AngleUIL2, AngleUIL3,
	ActiveEnergyP, ActiveEnergyPT1, ActiveEnergyPT2,
	ActiveEnergyN, ActiveEnergyNT1, ActiveEnergyNT2,
	ReactiveEnergyP, ReactiveEnergyN,
	ReactiveEnergyQ1, ReactiveEnergyQ2, ReactiveEnergyQ3, ReactiveEnergyQ4,
	PowerFactor, NetFrequency,
	GasVolume,
}

func LookupMeasurementType(identifier string) (MeasurementType, bool) {
	for _, t := range AllMeasurementTypes {
		if t.Identifier == identifier {
			return t, true
		}
	}
	return MeasurementType{}, false
}
