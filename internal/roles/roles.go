// Package roles describes the cooperating processes of a session: which
// channels each one owns and how its command line looks, so the coordinator
// can launch them and later find them again by argv.
package roles

import (
	"fmt"
	"strings"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// Subcommand is the hidden CLI verb that runs one role.
const Subcommand = "role"

const (
	configFlag  = "--config="
	sessionFlag = "--session="
)

// Spec describes one role.
type Spec struct {
	ID          domain.Role
	Description string
	Writes      []domain.Channel // Single writer per channel
	Reads       []domain.Channel
}

// MotionSpec is the motion watcher.
func MotionSpec() Spec {
	return Spec{
		ID:          domain.RoleMotion,
		Description: "Motion watcher: publishes the time of the last screen change",
		Writes:      []domain.Channel{domain.ChannelMotion},
		Reads:       []domain.Channel{domain.ChannelStop},
	}
}

// ColorSpec is the color watcher.
func ColorSpec() Spec {
	return Spec{
		ID:          domain.RoleColor,
		Description: "Color watcher: publishes monitored positions showing the target blue",
		Writes:      []domain.Channel{domain.ChannelClickTargets},
		Reads:       []domain.Channel{domain.ChannelStop},
	}
}

// ActorSpec is the actor.
func ActorSpec() Spec {
	return Spec{
		ID:          domain.RoleActor,
		Description: "Actor: consumes click targets and clicks them",
		Reads:       []domain.Channel{domain.ChannelClickTargets, domain.ChannelStop},
	}
}

// InjectorSpec is the instruction injector.
func InjectorSpec() Spec {
	return Spec{
		ID:          domain.RoleInjector,
		Description: "Injector: types the next instruction after a quiet period",
		Reads:       []domain.Channel{domain.ChannelMotion, domain.ChannelStop},
	}
}

// Command returns the argv that runs role in session. configPath may be empty.
func Command(binary, configPath, session string, role domain.Role) []string {
	args := []string{binary, Subcommand, string(role)}
	if configPath != "" {
		args = append(args, configFlag+configPath)
	}
	return append(args, sessionFlag+session)
}

// ShellCommand renders Command as one shell line for a terminal pane.
func ShellCommand(binary, configPath, session string, role domain.Role) string {
	argv := Command(binary, configPath, session, role)
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// Parse recognizes a role command line and returns its role and session.
func Parse(args []string) (role domain.Role, session string, ok bool) {
	// args[0] is the binary; the verb follows it directly
	if len(args) < 3 || args[1] != Subcommand {
		return "", "", false
	}
	role = domain.Role(args[2])
	for _, a := range args[3:] {
		if strings.HasPrefix(a, sessionFlag) {
			session = strings.TrimPrefix(a, sessionFlag)
		}
	}
	return role, session, session != ""
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./=:,@%+", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (s Spec) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.Description)
}
