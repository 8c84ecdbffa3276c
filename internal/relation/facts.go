package relation

// Relation names as seen from each role. The controller side names the
// relation after the counterpart daemon, subordinates name it after the
// controller.
const (
	NameCompute    = "slurmd"
	NameDatabase   = "slurmdbd"
	NameREST       = "slurmrestd"
	NameLogin      = "login-node"
	NameController = "slurmctld"
	NameBackingDB  = "database"
)

// Bucket keys for the fact payloads.
const (
	KeyClusterInfo = "cluster_info"
	KeyNode        = "node"
	KeyPartition   = "partition"
	KeyDatabase    = "db_info"
	KeyEndpoints   = "endpoints_info"
)

// ClusterInfo is the fact the controller publishes to compute, login
// and REST units. Fields are pointers so a consumer can tell a missing
// field (not yet published) from an empty one.
type ClusterInfo struct {
	AuthKey        *string `json:"auth_key"`
	ControllerHost *string `json:"slurmctld_host"`
	NHCParams      *string `json:"nhc_params,omitempty"`
	SlurmConf      *string `json:"slurm_conf,omitempty"`
}

// GresEntry is one generic-resource line advertised by a compute node.
type GresEntry struct {
	Name string `json:"Name"`
	Type string `json:"Type"`
	File string `json:"File"`
}

// NodeFact is the inventory a compute unit publishes to the controller.
type NodeFact struct {
	NodeName       string            `json:"node_name"`
	NodeParameters map[string]string `json:"node_parameters"`
	NewNode        bool              `json:"new_node"`
	Gres           []GresEntry       `json:"gres,omitempty"`
}

// PartitionFact maps a partition name to its parameters. Published by
// the compute application leader.
type PartitionFact map[string]map[string]string

// DatabaseFact is the accounting daemon's endpoint advertisement.
type DatabaseFact struct {
	Host *string `json:"slurmdbd_host"`
}

// DatabaseEndpoints is the fact received by the database role from its
// backing database: candidate endpoints plus credentials.
type DatabaseEndpoints struct {
	Endpoints string `json:"endpoints"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}
