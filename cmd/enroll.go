package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/audio"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/speaker"
)

var enrollUserID int64

var enrollCmd = &cobra.Command{
	Use:   "enroll --user <id> <sample.wav>",
	Short: "Enroll or update a user's voice profile from an audio sample",
	Long: `Extracts a voice fingerprint from the sample via the speaker-encoder
service and stores it as the user's profile. Enrolling again replaces
the previous fingerprint. Samples of a few seconds of clean speech
work best.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if enrollUserID <= 0 {
			return fmt.Errorf("--user is required")
		}
		samplePath := args[0]

		ctx := cmd.Context()
		logger := logging.MustGlobal()

		pcm, err := audio.DecodeWAVFile(samplePath)
		if err != nil {
			return fmt.Errorf("reading sample %s: %w", samplePath, err)
		}
		if pcm.Duration() < 1 {
			return fmt.Errorf("sample is too short (%.1fs): use at least one second of speech", pcm.Duration())
		}

		encoder := speaker.NewHTTPEncoder(speaker.HTTPEncoderConfig{
			BaseURL: cfg.Encoder.URL,
			Dim:     cfg.Encoder.Dim,
			Timeout: cfg.Encoder.Timeout,
		}, logger)

		if !encoder.IsAvailable(ctx) {
			return fmt.Errorf("speaker encoder at %s is not reachable", cfg.Encoder.URL)
		}

		embedding := encoder.Embed(ctx, pcm)
		if speaker.IsZero(embedding) {
			return fmt.Errorf("encoder produced no usable fingerprint from %s", samplePath)
		}

		pool, err := connectDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := speaker.NewProfileStore(pool, cfg.Encoder.Dim, logger)
		if err := store.Enroll(ctx, enrollUserID, embedding); err != nil {
			return err
		}

		fmt.Printf("Voice profile enrolled for user %d (%.1fs sample)\n", enrollUserID, pcm.Duration())
		return nil
	},
}

func init() {
	enrollCmd.Flags().Int64Var(&enrollUserID, "user", 0, "user to enroll (required)")
	rootCmd.AddCommand(enrollCmd)
}
