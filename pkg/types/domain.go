package types

// InstanceStatus summarizes one running server instance for /status.
type InstanceStatus struct {
	// Unique instance identifier.
	// example: 6f1c7a3e-0b0a-4b6e-9b1e-7d2f6c4a5e21
	ID string `json:"id" example:"6f1c7a3e-0b0a-4b6e-9b1e-7d2f6c4a5e21"`
	// Model identifier this instance serves.
	// example: meta-llama/Llama-3.1-8B-Instruct
	Model string `json:"model" example:"meta-llama/Llama-3.1-8B-Instruct"`
	// Base URL of the instance's OpenAI-compatible surface.
	// example: http://127.0.0.1:30001
	URL string `json:"url" example:"http://127.0.0.1:30001"`
	// TCP port the instance is bound to.
	// example: 30001
	Port int `json:"port" example:"30001"`
	// Process ID of the server subprocess.
	// example: 12345
	PID int `json:"pid" example:"12345"`
	// Accelerator identifiers the instance is pinned to.
	// example: [0,1]
	GPUs []int `json:"gpus" example:"0,1"`
	// True while an unhealthy marker on this URL is within its TTL.
	Unhealthy bool `json:"unhealthy,omitempty"`
}

// PoolStatus summarizes all instances serving one model.
type PoolStatus struct {
	// Normalized model identifier.
	// example: meta-llama/llama-3.1-8b-instruct
	Model string `json:"model" example:"meta-llama/llama-3.1-8b-instruct"`
	// Instances currently registered in the pool.
	Instances []InstanceStatus `json:"instances"`
	// Unix seconds of the last total launch failure, 0 if none recorded.
	LastFailureUnix int64 `json:"last_failure_unix,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// One entry per model with at least one registered instance.
	Pools []PoolStatus `json:"pools"`
	// Accelerator identifiers observed when the pools were initialized.
	// example: [0,1,2,3]
	GPUTopology []int `json:"gpu_topology" example:"0,1,2,3"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of instance launches since startup.
	// example: 12
	LaunchesTotal uint64 `json:"launches_total" example:"12"`
	// Total number of launches that never became healthy.
	// example: 2
	LaunchFailuresTotal uint64 `json:"launch_failures_total" example:"2"`
}
