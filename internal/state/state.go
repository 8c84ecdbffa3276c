package state

// Unit is the durable state owned by a single unit. It is loaded at the
// start of every dispatch and saved after every mutating handler.
// Cross-unit data never lives here, it travels over relation buckets.
type Unit struct {
	Installed bool `json:"installed"`

	// Secrets held by the controller unit for distribution.
	AuthKey    string `json:"auth_key,omitempty"`
	SigningKey string `json:"signing_key,omitempty"`

	// Facts received from the controller by subordinate roles.
	ControllerHost      string `json:"controller_host,omitempty"`
	ControllerAvailable bool   `json:"controller_available"`
	SlurmConfHash       string `json:"slurm_conf_hash,omitempty"`

	// Controller bookkeeping.
	DatabaseHost     string   `json:"database_host,omitempty"`
	NewNodes         []string `json:"new_nodes,omitempty"`
	DefaultPartition string   `json:"default_partition,omitempty"`

	// Raw user-supplied override strings, verbatim as configured.
	UserConfParams   string `json:"user_conf_params,omitempty"`
	UserCgroupParams string `json:"user_cgroup_params,omitempty"`
	NHCParams        string `json:"nhc_params,omitempty"`
	NHCConf          string `json:"nhc_conf,omitempty"`

	// Compute-node bookkeeping.
	NewNode         bool              `json:"new_node"`
	NodeParams      map[string]string `json:"node_params,omitempty"`
	PartitionParams map[string]string `json:"partition_params,omitempty"`

	// Database bookkeeping.
	StorageParams map[string]string `json:"storage_params,omitempty"`
}

// NewUnit returns the initial state for a freshly deployed unit. A
// compute node starts out as a new node until an operator marks it
// configured.
func NewUnit() Unit {
	return Unit{NewNode: true}
}
