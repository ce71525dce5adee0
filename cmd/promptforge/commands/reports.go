package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/pkg/template"
)

var promptsLimit int

// PromptsCmd implements spec.md §6's `prompts` read-only report.
var PromptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List ingested prompts",
	RunE:  runPrompts,
}

func init() {
	PromptsCmd.Flags().IntVar(&promptsLimit, "limit", 50, "Maximum rows to list")
}

func runPrompts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	prompts, err := a.db.ListPrompts(promptsLimit)
	if err != nil {
		return fmt.Errorf("list prompts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFAMILY\tEMBEDDED\tCREATED\tTEXT")
	for _, p := range prompts {
		family := "-"
		if p.FamilyID != nil {
			family = p.FamilyID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", p.ID, family, p.IsEmbedded(), p.CreatedAt.Format("2006-01-02"), truncate(p.OriginalText, 60))
	}
	return w.Flush()
}

// FamiliesCmd implements spec.md §6's `families` read-only report.
var FamiliesCmd = &cobra.Command{
	Use:   "families",
	Short: "List families",
	RunE:  runFamilies,
}

func runFamilies(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	families, err := a.db.AllFamilies()
	if err != nil {
		return fmt.Errorf("list families: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tVERSION\tNEEDS_TEMPLATE_UPDATE")
	for _, f := range families {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", f.ID, f.Name, f.MemberCount, f.Version, f.NeedsTemplateUpdate)
	}
	return w.Flush()
}

// FamilyCmd implements spec.md §6's `family <id>` read-only report.
var FamilyCmd = &cobra.Command{
	Use:   "family <id>",
	Short: "Show a single family and its member sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runFamily,
}

func runFamily(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid family id %q: %w", args[0], err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	family, err := a.db.GetFamilyByID(id)
	if err != nil {
		return fmt.Errorf("load family: %w", err)
	}
	members, err := a.db.FamilyMembers(id, 10)
	if err != nil {
		return fmt.Errorf("load family members: %w", err)
	}

	fmt.Printf("%s %q (%d members, version %d)\n", family.ID, family.Name, family.MemberCount, family.Version)
	fmt.Printf("description: %s\n", family.Description)
	fmt.Println("sample members:")
	for _, p := range members {
		fmt.Printf("  - %s\n", truncate(p.OriginalText, 100))
	}
	return nil
}

var templateExtract bool

// TemplateCmd implements spec.md §6's `template <id> [--extract]`.
var TemplateCmd = &cobra.Command{
	Use:   "template <id>",
	Short: "Show a template, optionally re-extracting it via the LLM refiner",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplate,
}

func init() {
	TemplateCmd.Flags().BoolVar(&templateExtract, "extract", false, "Refine the template via the LLM extractor before showing it")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid template id %q: %w", args[0], err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tpl, err := a.db.GetTemplateByID(id)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	if templateExtract {
		engine := template.NewEngine(a.db, a.extractor, a.cfg.Template.CreateThreshold, a.cfg.Template.UpdateDelta)
		refined, err := engine.Refine(context.Background(), tpl)
		if err != nil {
			return fmt.Errorf("refine template: %w", err)
		}
		tpl = refined
	}

	slots, err := tpl.DecodedSlots()
	if err != nil {
		return fmt.Errorf("decode slots: %w", err)
	}

	fmt.Printf("%s v%s (active=%v refined=%v)\n", tpl.ID, tpl.Version(), tpl.IsActive, tpl.IsRefined)
	fmt.Println(tpl.TemplateText)
	fmt.Println("slots:")
	for _, s := range slots {
		fmt.Printf("  - %s (%s)\n", s.Name, s.Type)
	}
	return nil
}

// EvolveCmd implements spec.md §6's `evolve <id>` read-only report.
var EvolveCmd = &cobra.Command{
	Use:   "evolve <id>",
	Short: "Show a family's template version history and an LLM-generated explanation",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvolve,
}

func runEvolve(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid family id %q: %w", args[0], err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.db.TemplateHistory(id)
	if err != nil {
		return fmt.Errorf("load template history: %w", err)
	}

	fmt.Println("version history:")
	for _, tpl := range history {
		fmt.Printf("  v%s  active=%v  refined=%v  %s\n", tpl.Version(), tpl.IsActive, tpl.IsRefined, tpl.CreatedAt.Format("2006-01-02"))
	}

	members, err := a.db.FamilyMembers(id, 20)
	if err != nil {
		return fmt.Errorf("load family members: %w", err)
	}
	samples := make([]string, len(members))
	for i, p := range members {
		samples[i] = p.NormalizedText
	}

	engine := template.NewEngine(a.db, a.extractor, a.cfg.Template.CreateThreshold, a.cfg.Template.UpdateDelta)
	explanation, err := engine.Explain(context.Background(), samples)
	if err != nil {
		return fmt.Errorf("generate explanation: %w", err)
	}
	fmt.Printf("\n%s\n", explanation)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
