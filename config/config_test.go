package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 環境変数が未設定の場合はデフォルト値が使われること
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LINEAR_API_URL", "")
	t.Setenv("LINEAR_API_KEY", "")
	t.Setenv("LINEAR_TEAM_KEY", "")
	t.Setenv("LINEAR_PAGE_SIZE", "")
	t.Setenv("HEIGHT_EXPORT_DIR", "")
	t.Setenv("LINEAR_CSV", "")
	t.Setenv("PARENT_MAPPING", "")
	t.Setenv("USE_HEIGHT_IDS", "")
	t.Setenv("GENERATE_BOTH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.linear.app/graphql", cfg.LinearAPIURL)
	assert.Empty(t, cfg.LinearAPIKey)
	assert.Empty(t, cfg.LinearTeamKey)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "height-export", cfg.HeightExportDir)
	assert.Equal(t, "linear_import.csv", cfg.LinearCSV)
	assert.Equal(t, "parent_mapping.json", cfg.ParentMapping)
	assert.False(t, cfg.UseHeightIDs)
	assert.False(t, cfg.GenerateBoth)
}

// 環境変数から設定を読み込めること
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LINEAR_API_URL", "https://linear.example.com/graphql/")
	t.Setenv("LINEAR_API_KEY", "lin_api_test")
	t.Setenv("LINEAR_TEAM_KEY", "NODE")
	t.Setenv("LINEAR_PAGE_SIZE", "50")
	t.Setenv("HEIGHT_EXPORT_DIR", "export-2025-09-29")
	t.Setenv("LINEAR_CSV", "out.csv")
	t.Setenv("PARENT_MAPPING", "out_mapping.json")
	t.Setenv("USE_HEIGHT_IDS", "true")
	t.Setenv("GENERATE_BOTH", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// 末尾のスラッシュは除去される
	assert.Equal(t, "https://linear.example.com/graphql", cfg.LinearAPIURL)
	assert.Equal(t, "lin_api_test", cfg.LinearAPIKey)
	assert.Equal(t, "NODE", cfg.LinearTeamKey)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "export-2025-09-29", cfg.HeightExportDir)
	assert.Equal(t, "out.csv", cfg.LinearCSV)
	assert.Equal(t, "out_mapping.json", cfg.ParentMapping)
	assert.True(t, cfg.UseHeightIDs)
	assert.True(t, cfg.GenerateBoth)
}

// 不正な数値・真偽値はデフォルト値にフォールバックすること
func TestLoadConfigInvalidValues(t *testing.T) {
	t.Setenv("LINEAR_PAGE_SIZE", "abc")
	t.Setenv("USE_HEIGHT_IDS", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PageSize)
	assert.False(t, cfg.UseHeightIDs)
}

// ステータスマッピングがLinearの語彙のみを返すこと
func TestStatusMappingVocabulary(t *testing.T) {
	valid := map[string]bool{
		"Backlog": true, "Todo": true, "In Progress": true, "Done": true, "Open": true,
	}

	for key, value := range StatusMapping {
		assert.True(t, valid[value], "ステータス %s のマッピング先 %s がLinearの語彙にありません", key, value)
	}
}
