package api

// v0 contains the public wire types shared with remote-execution backends.

// DispatchPayload is the flat request accepted by a func-transmit style
// backend on its standard input.
type DispatchPayload struct {
	Async      bool   `json:"async" yaml:"async"`
	NForks     int    `json:"nforks" yaml:"nforks"`
	Timeout    int    `json:"timeout" yaml:"timeout"`
	Module     string `json:"module" yaml:"module"`
	Method     string `json:"method" yaml:"method"`
	Parameters string `json:"parameters" yaml:"parameters"`
	Clients    string `json:"clients" yaml:"clients"`
}

// ClientSeparator joins target hosts in DispatchPayload.Clients.
const ClientSeparator = ";"

type RunStatus string

const (
	RunDispatched RunStatus = "dispatched"
	RunSucceeded  RunStatus = "succeeded"
	RunEmpty      RunStatus = "empty"
	RunFailed     RunStatus = "failed"
)
