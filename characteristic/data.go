package characteristic

// characteristicCatalogJSON is the embedded HAP characteristic metadata
// table backing Catalog. Types are the 8-hex-digit short form under the
// HAP base UUID. Ranges and defaults follow the HAP characteristic
// definitions also reflected in pyhap's characteristic.json resource.
const characteristicCatalogJSON = `[
  {"name": "On", "type": "25", "format": "bool", "perms": ["pr", "pw", "ev"]},
  {"name": "Brightness", "type": "08", "format": "int", "perms": ["pr", "pw", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "Hue", "type": "13", "format": "float", "perms": ["pr", "pw", "ev"], "unit": "arcdegrees", "minValue": 0, "maxValue": 360, "minStep": 1},
  {"name": "Saturation", "type": "2F", "format": "float", "perms": ["pr", "pw", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "ColorTemperature", "type": "CE", "format": "uint32", "perms": ["pr", "pw", "ev"], "minValue": 50, "maxValue": 400, "minStep": 1},
  {"name": "CurrentTemperature", "type": "11", "format": "float", "perms": ["pr", "ev"], "unit": "celsius", "minValue": 0, "maxValue": 100, "minStep": 0.1},
  {"name": "TargetTemperature", "type": "35", "format": "float", "perms": ["pr", "pw", "ev"], "unit": "celsius", "minValue": 10, "maxValue": 38, "minStep": 0.1},
  {"name": "TemperatureDisplayUnits", "type": "36", "format": "uint8", "perms": ["pr", "pw", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "CurrentHeatingCoolingState", "type": "0F", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 2, "minStep": 1},
  {"name": "TargetHeatingCoolingState", "type": "33", "format": "uint8", "perms": ["pr", "pw", "ev"], "minValue": 0, "maxValue": 3, "minStep": 1},
  {"name": "CurrentRelativeHumidity", "type": "10", "format": "float", "perms": ["pr", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "CurrentAmbientLightLevel", "type": "6B", "format": "float", "perms": ["pr", "ev"], "unit": "lux", "minValue": 0.0001, "maxValue": 100000, "minStep": 0.0001},
  {"name": "MotionDetected", "type": "22", "format": "bool", "perms": ["pr", "ev"]},
  {"name": "ContactSensorState", "type": "6A", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "OccupancyDetected", "type": "71", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "SmokeDetected", "type": "76", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "LeakDetected", "type": "70", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "LockCurrentState", "type": "1D", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 3, "minStep": 1},
  {"name": "LockTargetState", "type": "1E", "format": "uint8", "perms": ["pr", "pw", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "Active", "type": "B0", "format": "uint8", "perms": ["pr", "pw", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "CurrentPosition", "type": "6D", "format": "uint8", "perms": ["pr", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "TargetPosition", "type": "7C", "format": "uint8", "perms": ["pr", "pw", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "PositionState", "type": "72", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 2, "minStep": 1},
  {"name": "BatteryLevel", "type": "68", "format": "uint8", "perms": ["pr", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "StatusLowBattery", "type": "79", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 1, "minStep": 1},
  {"name": "ChargingState", "type": "8F", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 2, "minStep": 1},
  {"name": "OutletInUse", "type": "26", "format": "bool", "perms": ["pr", "ev"]},
  {"name": "ProgrammableSwitchEvent", "type": "73", "format": "uint8", "perms": ["pr", "ev"], "minValue": 0, "maxValue": 2, "minStep": 1},
  {"name": "RotationSpeed", "type": "29", "format": "float", "perms": ["pr", "pw", "ev"], "unit": "percentage", "minValue": 0, "maxValue": 100, "minStep": 1},
  {"name": "Name", "type": "23", "format": "string", "perms": ["pr"], "maxLen": 64}
]`

// serviceCatalogJSON is the embedded HAP service metadata table backing
// ServiceCatalog.
const serviceCatalogJSON = `[
  {"name": "AccessoryInformation", "type": "3E"},
  {"name": "Lightbulb", "type": "43"},
  {"name": "Switch", "type": "49"},
  {"name": "Outlet", "type": "47"},
  {"name": "Thermostat", "type": "4A"},
  {"name": "TemperatureSensor", "type": "8A"},
  {"name": "HumiditySensor", "type": "82"},
  {"name": "LightSensor", "type": "84"},
  {"name": "MotionSensor", "type": "85"},
  {"name": "ContactSensor", "type": "80"},
  {"name": "OccupancySensor", "type": "86"},
  {"name": "SmokeSensor", "type": "87"},
  {"name": "LeakSensor", "type": "83"},
  {"name": "LockMechanism", "type": "45"},
  {"name": "WindowCovering", "type": "8C"},
  {"name": "Fan", "type": "B7"},
  {"name": "Battery", "type": "96"},
  {"name": "StatelessProgrammableSwitch", "type": "89"},
  {"name": "BridgingState", "type": "62"}
]`
