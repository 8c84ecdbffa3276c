package consts

// Role identifies which Slurm daemon a unit manages.
type Role string

const (
	RoleController Role = "controller"
	RoleCompute    Role = "compute"
	RoleDatabase   Role = "database"
	RoleREST       Role = "rest"
	RoleLogin      Role = "login"
)

const (
	SlurmctldName  = "slurmctld"
	SlurmdName     = "slurmd"
	SlurmdbdName   = "slurmdbd"
	SlurmrestdName = "slurmrestd"
	SackdName      = "sackd"
	MungeName      = "munge"
)

// ServiceName returns the systemd unit managed for the role.
func (r Role) ServiceName() string {
	switch r {
	case RoleController:
		return SlurmctldName
	case RoleCompute:
		return SlurmdName
	case RoleDatabase:
		return SlurmdbdName
	case RoleREST:
		return SlurmrestdName
	case RoleLogin:
		return SackdName
	}
	return ""
}
