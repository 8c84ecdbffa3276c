package consts

const (
	SlurmUser  = "slurm"
	SlurmGroup = "slurm"
	MungeUser  = "munge"
	MungeGroup = "munge"

	SlurmctldPort = "6817"
	SlurmdPort    = "6818"
	SlurmdbdPort  = "6819"

	DefaultClusterName = "charmedhpc"

	// NewNodeReason marks nodes held down until an operator confirms
	// their configuration.
	NewNodeReason = "New node."
)

const (
	SlurmConfFile    = "/etc/slurm/slurm.conf"
	CgroupConfFile   = "/etc/slurm/cgroup.conf"
	GresConfFile     = "/etc/slurm/gres.conf"
	SlurmdbdConfFile = "/etc/slurm/slurmdbd.conf"

	MungeKeyFile      = "/etc/munge/munge.key"
	JWTSigningKeyFile = "/var/lib/slurm/checkpoint/jwt_hs256.key"

	MungeSocket = "/var/run/munge/munge.socket.2"

	NHCConfFile = "/etc/nhc/nhc.conf"
	NHCWrapper  = "/usr/sbin/charmed-hpc-nhc-wrapper"

	// ServiceEnvDir holds the per-daemon environment files the packaged
	// systemd units source, /etc/default/<daemon>.
	ServiceEnvDir = "/etc/default"
)

const (
	// MetricsPort is where the agent publishes its prometheus metrics.
	MetricsPort = 9092
)
