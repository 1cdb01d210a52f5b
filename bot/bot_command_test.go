/* bot_command_test.go
 * Contains unit tests for bot.go
 */

package bot

import (
	"strings"
	"testing"
	"uscf-gamelist/api/api"
)

// Create a mock API for testing
func createMockAPI() *api.API {
	return api.New(api.NewMockFetcher(), api.NewMockStore(), "30000001", nil)
}

// region NewBot tests

func TestNewBot_Success(t *testing.T) {
	apiPtr := createMockAPI()
	bot, err := NewBot("test_token", apiPtr, nil)

	if err != nil {
		t.Errorf("Expected no error, got: %s", err.Error())
	}

	if bot.BotToken != "test_token" {
		t.Errorf("Expected bot token 'test_token', got '%s'", bot.BotToken)
	}

	if bot.APIPtr != apiPtr {
		t.Error("API pointer not set correctly")
	}

	if bot.RefreshTimeout != defaultRefreshTimeout || bot.Logger == nil {
		t.Error("Expected defaults to be set")
	}
}

func TestNewBot_EmptyToken(t *testing.T) {
	apiPtr := createMockAPI()
	_, err := NewBot("", apiPtr, nil)

	if err == nil {
		t.Fatal("Expected error for empty bot token, got nil")
	}

	if !strings.Contains(err.Error(), "botToken is required") {
		t.Errorf("Expected error about botToken, got: %s", err.Error())
	}
}

// endregion
