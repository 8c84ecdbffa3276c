package reconciler

import "github.com/charmed-hpc/slurm-agent/internal/consts"

// Role describes everything role-specific the shared engine needs: the
// packages to install, the service to manage, and which fact fields the
// role requires before it may become active.
type Role struct {
	Name consts.Role

	// Packages installed on the install event; the first one also
	// reports the workload version.
	Packages []string

	// SingleUnit roles refuse to scale: a non-leader unit blocks at
	// install instead of proceeding.
	SingleUnit bool

	// NeedsSlurmConf marks roles that additionally require the
	// rendered configuration from the controller (the REST role).
	NeedsSlurmConf bool

	// UsesConfServer marks roles whose daemon fetches its configuration
	// from the controller with --conf-server instead of a local file.
	UsesConfServer bool

	// NeedsNHC marks roles that install and run node health checks.
	NeedsNHC bool
}

var roles = map[consts.Role]Role{
	consts.RoleController: {
		Name:       consts.RoleController,
		Packages:   []string{"slurmctld", "mungectl"},
		SingleUnit: true,
	},
	consts.RoleCompute: {
		Name:           consts.RoleCompute,
		Packages:       []string{"slurmd", "mungectl"},
		NeedsNHC:       true,
		UsesConfServer: true,
	},
	consts.RoleDatabase: {
		Name:       consts.RoleDatabase,
		Packages:   []string{"slurmdbd", "mungectl"},
		SingleUnit: true,
	},
	consts.RoleREST: {
		Name:           consts.RoleREST,
		Packages:       []string{"slurmrestd", "mungectl"},
		NeedsSlurmConf: true,
	},
	consts.RoleLogin: {
		Name:           consts.RoleLogin,
		Packages:       []string{"sackd", "mungectl"},
		UsesConfServer: true,
	},
}

// LookupRole returns the descriptor for a role name.
func LookupRole(name consts.Role) (Role, bool) {
	r, ok := roles[name]
	return r, ok
}
