package config

// this holds the resolved configuration values from CLI
var (
	GenericHTTPURL    string // endpoint of a generic telemetry document publisher
	TruckSimulatorURL string // endpoint of the ETS2/ATS telemetry server
	DirtRally2Addr    string // UDP listen address for DiRT Rally 2.0 packets
	RelayURL          string // websocket endpoint of a telemetry relay
	RetryInterval     string // pause between connection attempts per backend
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogConfig         string // path to log config file
)
