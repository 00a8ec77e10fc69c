package session

import (
	"fmt"

	"github.com/foxseedlab/mensetsu/internal/timebudget"
)

const (
	messageMissingInterview     = "Interview data is missing. Please reload the interview."
	messageNoTimeRemaining      = "No interview time remains for this attempt."
	messageStartFailed          = "Failed to start the interview call. Please try again."
	messageVendorError          = "The interview call hit an error. Press retry to start again."
	messageSaveFailed           = "Failed to save progress. Your session is still running; please try again."
	messageProgressSaved        = "Progress saved. You can resume this interview later."
	messageCompleted            = "Interview completed. Well done!"
	messageCompletionSaveFailed = "The interview ended but the final result could not be saved."
	messageNoProgress           = "No previous progress found. Starting fresh!"
	messageLoadFailed           = "Failed to load progress. Starting fresh."
	messageExistingProgress     = "You have saved progress for this interview. Load it to continue where you left off."
	messageMicrophoneMuted      = "Microphone muted"
	messageMicrophoneUnmuted    = "Microphone unmuted"
)

func progressLoadedMessage(turns int, remainingSeconds int) string {
	return fmt.Sprintf("Progress loaded: %d messages, %s remaining.", turns, timebudget.FormatTime(float64(remainingSeconds)))
}
