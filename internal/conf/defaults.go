package conf

import "github.com/charmed-hpc/slurm-agent/internal/consts"

// NewNodeReason is the down-node marker for nodes awaiting operator
// confirmation.
const NewNodeReason = consts.NewNodeReason

type fixedParam struct {
	key   string
	value Value
}

// maintainedParams are the agent-maintained slurm.conf defaults. Every
// one of them can be overridden by user-supplied parameters, which are
// applied after this block.
var maintainedParams = []fixedParam{
	{"AuthAltParameters", map[string]string{"jwt_key": consts.JWTSigningKeyFile}},
	{"AuthAltTypes", []string{"auth/jwt"}},
	{"AuthInfo", map[string]string{"socket": consts.MungeSocket}},
	{"AuthType", "auth/munge"},
	{"GresTypes", "gpu"},
	{"HealthCheckInterval", "600"},
	{"HealthCheckNodeState", []string{"ANY", "CYCLE"}},
	{"HealthCheckProgram", consts.NHCWrapper},
	{"MailProg", "/usr/bin/mail.mailutils"},
	{"PluginDir", []string{"/usr/lib/x86_64-linux-gnu/slurm-wlm"}},
	{"PlugStackConfig", "/etc/slurm/plugstack.conf.d/plugstack.conf"},
	{"SelectType", "select/cons_tres"},
	{"SelectTypeParameters", "CR_CPU_Memory"},
	{"SlurmctldPort", consts.SlurmctldPort},
	{"SlurmdPort", consts.SlurmdPort},
	{"StateSaveLocation", "/var/lib/slurm/checkpoint"},
	{"SlurmdSpoolDir", "/var/lib/slurm/slurmd"},
	{"SlurmctldLogFile", "/var/log/slurm/slurmctld.log"},
	{"SlurmdLogFile", "/var/log/slurm/slurmd.log"},
	{"SlurmdPidFile", "/var/run/slurmd.pid"},
	{"SlurmctldPidFile", "/var/run/slurmctld.pid"},
	{"SlurmUser", consts.SlurmUser},
	{"SlurmdUser", "root"},
	{"RebootProgram", `/usr/sbin/reboot --reboot`},
}

// maintainedCgroupParams are the agent-maintained cgroup.conf defaults.
var maintainedCgroupParams = []fixedParam{
	{"ConstrainCores", "yes"},
	{"ConstrainDevices", "yes"},
	{"ConstrainRAMSpace", "yes"},
	{"ConstrainSwapSpace", "yes"},
}

// maintainedDatabaseParams are the agent-maintained slurmdbd.conf
// defaults for the accounting daemon.
var maintainedDatabaseParams = []fixedParam{
	{"DbdPort", consts.SlurmdbdPort},
	{"AuthType", "auth/munge"},
	{"AuthInfo", map[string]string{"socket": consts.MungeSocket}},
	{"SlurmUser", consts.SlurmUser},
	{"PluginDir", []string{"/usr/lib/x86_64-linux-gnu/slurm-wlm"}},
	{"PidFile", "/var/run/slurmdbd.pid"},
	{"LogFile", "/var/log/slurm/slurmdbd.log"},
	{"StorageType", "accounting_storage/mysql"},
}

// AccountingStorageLoc is the accounting database name.
const AccountingStorageLoc = "slurm_acct_db"
