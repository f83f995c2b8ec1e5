package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"rubric-review/backend/internal/config"
	"rubric-review/backend/internal/logging"
	"rubric-review/backend/internal/metrics"
	"rubric-review/backend/internal/repository"
	"rubric-review/backend/internal/rubric"
	"rubric-review/backend/internal/services"
	"rubric-review/backend/internal/validation"
	"rubric-review/backend/pkg/models"
)

var (
	seedConfigPath string
	seedComplete   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "seed",
		Short:         "Create demo rubric review workflows in the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&seedConfigPath, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.Flags().BoolVar(&seedComplete, "complete", false, "also submit every review stage for each workflow")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(seedConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn("Seeding the memory store; records disappear when this process exits")
	}

	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	mode, err := validation.ParseMode(cfg.Validation.Mode)
	if err != nil {
		return err
	}
	svc := services.NewWorkflowService(store, validation.New(mode),
		services.WithLogger(logger),
		services.WithMetrics(metrics.InitMetrics(prometheus.NewRegistry())),
	)

	for _, in := range seedInputs {
		rec, err := svc.CreateWorkflow(ctx, mustJSON(in))
		if err != nil {
			return fmt.Errorf("failed to create workflow for %s: %w", in.Domain, err)
		}
		logger.Info("Seeded workflow", "id", rec.ID, "domain", in.Domain)

		if !seedComplete {
			continue
		}
		if err := completeReview(ctx, svc, rec.ID, in.Rubric); err != nil {
			return fmt.Errorf("failed to complete workflow %d: %w", rec.ID, err)
		}
		logger.Info("Completed review", "id", rec.ID)
	}
	logger.Info("Seeding complete!")
	return nil
}

func completeReview(ctx context.Context, svc *services.WorkflowService, id int64, rubricText string) error {
	draft := rubric.DraftFromText(rubricText)
	for i := range draft.Items {
		draft.Items[i].CorrectScore = 2
		draft.Items[i].CorrectRationale = "Criterion fully met by the reference answer."
		draft.Items[i].IncorrectRationale1 = "Criterion missed."
		draft.Items[i].IncorrectRationale2 = "Criterion partially met."
		draft.Items[i].IncorrectScore2 = 1
	}

	stages := []struct {
		step    models.Step
		payload any
	}{
		{models.StepTaskOne, models.TaskOneResponse{
			MetadataQuality:        4,
			DomainCorrect:          true,
			SubdomainCorrect:       true,
			DifficultyScore:        3,
			Quality:                "Well posed.",
			CorrectAnswerGrade:     1,
			CorrectAnswerRationale: "Matches the reference derivation.",
		}},
		{models.StepTaskTwo, models.TaskTwoResponse{RubricItems: draft.Items}},
		{models.StepTaskThree, models.TaskThreeResponse{
			CorrectAnswerGrade:        4,
			CorrectAnswerRationale:    "All criteria satisfied.",
			IncorrectAnswer1Grade:     1,
			IncorrectAnswer1Rationale: "Wrong units throughout.",
			IncorrectAnswer2Grade:     2,
			IncorrectAnswer2Rationale: "Correct setup, arithmetic slip.",
		}},
		{models.StepTaskFour, models.TaskFourResponse{
			OverallRubricsCompleteness: 4,
			OverallRubricsClarity:      3,
			OverallRubricsFlexibility:  3,
			EvaluateRubricsRationale:   "Rubric separates the answers cleanly.",
		}},
	}
	for _, st := range stages {
		if _, err := svc.SubmitStage(ctx, id, st.step, mustJSON(st.payload)); err != nil {
			return fmt.Errorf("%s: %w", st.step, err)
		}
	}
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var seedInputs = []models.TaskZeroInputs{
	{
		Domain:          "Physics",
		Subdomain:       "Classical Mechanics",
		DifficultyScore: 3,
		Problem:         "A 2 kg block slides down a frictionless 30 degree incline of length 5 m. Find its speed at the bottom.",
		Rubric: `<rubrics>
<rubric><name>Energy conservation</name><description>Sets mgh equal to kinetic energy.</description></rubric>
<rubric><name>Height from incline</name><description>Uses h = L sin(30).</description></rubric>
<rubric><name>Final numeric answer</name><description>Reports about 7 m/s with units.</description></rubric>
</rubrics>`,
		Incorrect1:           "v = sqrt(2*9.8*5) = 9.9 m/s",
		Incorrect2:           "v = sqrt(2*9.8*2.5) = 4.9 m/s",
		Correct:              "h = 2.5 m, v = sqrt(2*9.8*2.5) = 7.0 m/s",
		Incorrect1RubricTest: "Misses the height criterion.",
		Incorrect2RubricTest: "Arithmetic error on the final answer.",
		CorrectRubricTest:    "Meets every criterion.",
	},
	{
		Domain:          "Chemistry",
		Subdomain:       "Stoichiometry",
		DifficultyScore: 2,
		Problem:         "How many grams of water form when 4 g of hydrogen burns completely in oxygen?",
		Rubric: `1. Balanced equation
2. Moles of hydrogen
3. Mass of water with units`,
		Incorrect1:           "18 g",
		Incorrect2:           "72 g",
		Correct:              "2H2 + O2 -> 2H2O; 2 mol H2 gives 2 mol H2O = 36 g",
		Incorrect1RubricTest: "Skips the mole ratio.",
		Incorrect2RubricTest: "Doubles the mole count.",
		CorrectRubricTest:    "Meets every criterion.",
	},
}
