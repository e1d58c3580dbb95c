package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
)

// commands builds a fresh command tree for one input line. Cobra keeps parse
// state on the commands, so they are not reused between lines.
func (s *Session) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "perkplanner",
		Short:         "Plan a character build",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	cmds := []*cobra.Command{
		{
			Use:   "set <stat> <value>",
			Short: "Set the base value of a S.P.E.C.I.A.L. attribute",
			Args:  cobra.ExactArgs(2),
			RunE:  s.runSet,
		},
		{
			Use:   "add <perk> [rank]",
			Short: "Take a perk, by default at the highest rank the level cap allows",
			Args:  cobra.MinimumNArgs(1),
			RunE:  s.runAdd,
		},
		{
			Use:     "remove <perk>",
			Aliases: []string{"rm"},
			Short:   "Refund every rank of a perk",
			Args:    cobra.MinimumNArgs(1),
			RunE:    s.runRemove,
		},
		{
			Use:   "refund <perk>",
			Short: "Refund the top rank of a perk",
			Args:  cobra.MinimumNArgs(1),
			RunE:  s.runRefund,
		},
		{
			Use:   "perk <perk>",
			Short: "Show every rank of a perk",
			Args:  cobra.MinimumNArgs(1),
			RunE:  s.runPerk,
		},
		{
			Use:   "special [stat]",
			Short: "Show the perks of one or all attributes",
			Args:  cobra.MaximumNArgs(1),
			RunE:  s.runSpecial,
		},
		{
			Use:   "bonus <bonus>",
			Short: "Toggle a bobblehead, book, magazine, companion or quest bonus",
			Args:  cobra.MinimumNArgs(1),
			RunE:  s.runBonus,
		},
		{
			Use:   "bonuses [category]",
			Short: "List the bonus catalog",
			Args:  cobra.MaximumNArgs(1),
			RunE:  s.runBonuses,
		},
		{
			Use:     "cap [level]",
			Aliases: []string{"ll", "level"},
			Short:   "Show or set the level cap",
			Args:    cobra.MaximumNArgs(1),
			RunE:    s.runCap,
		},
		{
			Use:   "reset",
			Short: "Start over with an empty build",
			Args:  cobra.NoArgs,
			RunE:  s.runReset,
		},
		{
			Use:   "name <name>",
			Short: "Name the build",
			RunE:  s.runName,
		},
		{
			Use:   "gender <male|female>",
			Short: "Set the character's gender",
			Args:  cobra.ExactArgs(1),
			RunE:  s.runGender,
		},
		{
			Use:     "difficulty <difficulty>",
			Aliases: []string{"diff"},
			Short:   "Set the game difficulty",
			Args:    cobra.MinimumNArgs(1),
			RunE:    s.runDifficulty,
		},
		{
			Use:   "sheet",
			Short: "Toggle the perk chart",
			Args:  cobra.NoArgs,
			RunE:  s.runSheet,
		},
		{
			Use:   "save [name]",
			Short: "Save the build to the library",
			RunE:  s.runSave,
		},
		{
			Use:   "load <name|path>",
			Short: "Load a build from the library or a file",
			Args:  cobra.MinimumNArgs(1),
			RunE:  s.runLoad,
		},
		{
			Use:   "builds",
			Short: "List saved builds",
			Args:  cobra.NoArgs,
			RunE:  s.runBuilds,
		},
		{
			Use:     "exit",
			Aliases: []string{"quit", "q"},
			Short:   "Leave the planner",
			Args:    cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				s.res.Exit = true
				return nil
			},
		},
	}
	for _, c := range cmds {
		// Perk names and negative numbers are arguments, never flags.
		c.DisableFlagParsing = true
		root.AddCommand(c)
	}
	return root
}

func (s *Session) runSet(_ *cobra.Command, args []string) error {
	a, err := special.Parse(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid value: %s", args[1])
	}
	if err := s.build.SetBaseAttribute(a, v); err != nil {
		return err
	}
	s.res.Message = fmt.Sprintf("Set %s to %d", a, v)
	return nil
}

func (s *Session) runAdd(_ *cobra.Command, args []string) error {
	words, rank, hasRank := splitRank(args)
	p, err := s.findPerk(words)
	if err != nil {
		return err
	}
	if !hasRank {
		rank = highestRankWithin(p, s.build.LevelCap())
	}
	if err := s.build.SetPerkRank(p.ID, rank); err != nil {
		return err
	}
	name := s.build.PerkName(p.ID)
	if rank == 0 {
		s.res.Message = "Removed " + name
	} else {
		s.res.Message = fmt.Sprintf("Added %s rank %d", name, rank)
	}
	return nil
}

func (s *Session) runRemove(_ *cobra.Command, args []string) error {
	p, err := s.findPerk(args)
	if err != nil {
		return err
	}
	if err := s.build.RemovePerk(p.ID); err != nil {
		return err
	}
	s.res.Message = "Removed " + s.build.PerkName(p.ID)
	return nil
}

func (s *Session) runRefund(_ *cobra.Command, args []string) error {
	p, err := s.findPerk(args)
	if err != nil {
		return err
	}
	from := s.build.Rank(p.ID)
	if err := s.build.RefundPerkRank(p.ID); err != nil {
		return err
	}
	s.res.Message = fmt.Sprintf("Refunded %s rank %d", s.build.PerkName(p.ID), from)
	return nil
}

func (s *Session) runPerk(_ *cobra.Command, args []string) error {
	p, err := s.findPerk(args)
	if err != nil {
		return err
	}
	s.res.Detail = renderPerk(s.styles, s.build, p)
	return nil
}

func (s *Session) runSpecial(_ *cobra.Command, args []string) error {
	attrs := special.All[:]
	if len(args) == 1 {
		a, err := special.Parse(args[0])
		if err != nil {
			return err
		}
		attrs = []special.Attribute{a}
	}
	s.res.Detail = renderSpecial(s.styles, s.build, s.cat, attrs)
	return nil
}

func (s *Session) runBonus(_ *cobra.Command, args []string) error {
	def, err := s.cat.FindBonus(strings.Join(args, " "))
	if err != nil {
		return &build.Error{Code: build.CodeUnknownBonus, Msg: err.Error()}
	}
	on, err := s.build.ToggleBonus(def.ID)
	if err != nil {
		return err
	}
	if on {
		s.res.Message = "Activated " + def.Name
	} else {
		s.res.Message = "Deactivated " + def.Name
	}
	return nil
}

func (s *Session) runBonuses(_ *cobra.Command, args []string) error {
	category := ""
	if len(args) == 1 {
		category = strings.ToLower(args[0])
		known := false
		for _, id := range s.cat.BonusIDs() {
			if def, _ := s.cat.Bonus(id); def.Category == category {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown bonus category: %s", args[0])
		}
	}
	s.res.Detail = renderBonusCatalog(s.styles, s.build, s.cat, category)
	return nil
}

func (s *Session) runCap(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		s.res.Message = fmt.Sprintf("Level cap is %d (%d spent, %d remaining)",
			s.build.LevelCap(), s.build.Spent(), s.build.Remaining())
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid level: %s", args[0])
	}
	if err := s.build.SetLevelCap(n); err != nil {
		return err
	}
	s.res.Message = fmt.Sprintf("Level cap set to %d", n)
	return nil
}

func (s *Session) runReset(*cobra.Command, []string) error {
	s.build.Reset()
	s.res.Message = "Build reset!"
	return nil
}

func (s *Session) runName(_ *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return errors.New("name cannot be empty")
	}
	s.build.SetName(name)
	s.res.Message = "Build name set to " + name
	return nil
}

func (s *Session) runGender(_ *cobra.Command, args []string) error {
	g, err := build.ParseGender(args[0])
	if err != nil {
		return err
	}
	s.build.SetGender(g)
	s.res.Message = "Gender set to " + string(g)
	return nil
}

func (s *Session) runDifficulty(_ *cobra.Command, args []string) error {
	d, err := build.ParseDifficulty(strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.build.SetDifficulty(d)
	s.res.Message = "Difficulty set to " + string(d)
	return nil
}

func (s *Session) runSheet(*cobra.Command, []string) error {
	s.showChart = !s.showChart
	if s.showChart {
		s.res.Message = "Perk chart shown"
	} else {
		s.res.Message = "Perk chart hidden"
	}
	return nil
}

// runSave names the build before writing it, since the name is part of the
// file. A failed save puts the previous name back.
func (s *Session) runSave(_ *cobra.Command, args []string) error {
	prev := s.build.Name()
	if len(args) > 0 {
		s.build.SetName(strings.Join(args, " "))
	}
	if s.build.Name() == "" {
		return errors.New("a name for the build must be given, either with save <name> or name <name>")
	}
	ent, err := s.save(s.build.Name())
	if err != nil {
		s.build.SetName(prev)
		return err
	}
	s.res.Message = fmt.Sprintf("Build saved! (%s, %s)", ent.Path, humanize.Bytes(uint64(ent.Size)))
	return nil
}

func (s *Session) runLoad(_ *cobra.Command, args []string) error {
	if err := s.load(strings.Join(args, " ")); err != nil {
		return err
	}
	s.res.Message = "Build loaded!"
	return nil
}

func (s *Session) runBuilds(*cobra.Command, []string) error {
	if s.lib == nil {
		return errors.New("no build library configured")
	}
	entries, err := s.lib.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.res.Message = "No saved builds"
		return nil
	}
	s.res.Detail = renderLibrary(s.styles, entries, s.indexRows(), s.now())
	return nil
}

func (s *Session) findPerk(words []string) (catalogs.PerkDef, error) {
	p, err := s.cat.FindPerk(strings.Join(words, " "))
	if err != nil {
		return p, &build.Error{Code: build.CodeUnknownPerk, Msg: err.Error()}
	}
	return p, nil
}

// splitRank peels a trailing integer off a perk reference.
func splitRank(args []string) ([]string, int, bool) {
	if len(args) < 2 {
		return args, 0, false
	}
	n, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return args, 0, false
	}
	return args[:len(args)-1], n, true
}

// highestRankWithin is the highest rank of p whose level fits under cap, or 1
// when none does.
func highestRankWithin(p catalogs.PerkDef, levelCap int) int {
	best := 1
	for i, rd := range p.Ranks {
		if rd.Level <= levelCap {
			best = i + 1
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
