package main

import (
	"encoding/json"
	"github.com/myrjola/caselink/internal/complexity"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/models"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
)

var sceneGroup = &cobra.Group{
	ID:    "scene",
	Title: "Scene reconstruction",
}

// sceneInput is the interview state read by the scene score command.
type sceneInput struct {
	Elements            []models.SceneElement  `json:"elements"`
	ConversationTurns   int                    `json:"conversation_turns"`
	Contradictions      []models.Contradiction `json:"contradictions"`
	LastGenerationScore *float64               `json:"last_generation_score"`
}

type sceneOutput struct {
	complexity.Score
	ShouldGenerate bool   `json:"should_generate"`
	Reason         string `json:"reason"`
}

func newSceneCmd(app *application) *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:     "scene",
		GroupID: sceneGroup.ID,
		Short:   "Scene complexity scoring",
	}
	scoreCmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score scene readiness for image generation",
		Long: `Reads a JSON file with elements, conversation_turns, contradictions and last_generation_score and
prints the complexity score with the image generation decision.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read scene file")
			}
			var input sceneInput
			if err = json.Unmarshal(data, &input); err != nil {
				return errors.Wrap(err, "decode scene file", slog.String("file", args[0]))
			}
			score := app.complexity.Calculate(input.Elements, input.ConversationTurns, input.Contradictions)
			shouldGenerate, reason := app.complexity.ShouldGenerateImage(score.TotalScore, input.LastGenerationScore)
			return app.printJSON(sceneOutput{Score: score, ShouldGenerate: shouldGenerate, Reason: reason})
		},
	}
	sceneCmd.AddCommand(scoreCmd)
	return sceneCmd
}
