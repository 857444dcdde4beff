package projectgraph

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// CollisionResolver decides which project id an ambiguous alias resolves
// to, when a platform-native alias string collides with another project's
// literal workspace id (Open Question: does the alias or the literal id
// win when both exist?).
type CollisionResolver interface {
	// Resolve is asked for the alias string, the id of the project that
	// declared it, and the id of the project it collides with (the one
	// whose literal id equals the alias). It returns whichever of the two
	// ids should own the alias going forward.
	Resolve(alias, aliasOwnerID, literalOwnerID string) string
}

// SetCollisionResolver installs r, consulted by Preload whenever a
// discovered alias collides with another project's literal id. Without
// one, the alias always wins (assembleAliases's default).
func (b *Builder) SetCollisionResolver(r CollisionResolver) {
	b.collisions = r
}

// InteractiveCollisionResolver prompts the user to choose, falling back to
// "alias wins" when stdin isn't a terminal — the same non-interactive
// default assembleAliases already applies when no resolver is installed.
type InteractiveCollisionResolver struct{}

func (InteractiveCollisionResolver) Resolve(alias, aliasOwnerID, literalOwnerID string) string {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return aliasOwnerID
	}

	options := []string{
		fmt.Sprintf("%s (declared alias %q)", aliasOwnerID, alias),
		fmt.Sprintf("%s (literal project id)", literalOwnerID),
	}
	answer := ""
	prompt := &survey.Select{
		Message: fmt.Sprintf("project id %q is ambiguous, which project should it resolve to?", alias),
		Options: options,
		Default: options[0],
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return aliasOwnerID
	}
	if answer == options[1] {
		return literalOwnerID
	}
	return aliasOwnerID
}
