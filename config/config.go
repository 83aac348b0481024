package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Linear API設定
	LinearAPIURL  string
	LinearAPIKey  string
	LinearTeamKey string
	PageSize      int

	// ファイルパス
	HeightExportDir string
	LinearCSV       string
	ParentMapping   string

	// 出力モード設定
	UseHeightIDs bool
	GenerateBoth bool
}

// StatusMapping はHeightステータスからLinearステータスへのマッピングです。
// キーにはステータス名のほか、Heightエクスポートに現れるステータスUUIDも含みます
// (statuses.jsonが無いエクスポートでも変換できるようにするため)
var StatusMapping = map[string]string{
	// 標準ステータス
	"backLog":    "Backlog",
	"done":       "Done",
	"inProgress": "In Progress",
	"Open":       "Open",
	"Closed":     "Done",

	// UUIDステータス (Linearの標準ステータスにマップ)
	"c79706e5-618d-4c3f-a31c-38e2b45c3afb": "Backlog",
	"1719cfde-fdf7-4d15-83bd-6bc1e6f46b3b": "Todo",
	"28e2b389-fb49-4595-a5f6-c338553dbbc2": "Todo",
	"1eb8b8d9-9f0a-4f31-9d19-b01f841a9ffb": "Todo",
	"7aa06750-ed00-4d8d-80a1-9946317cd01a": "Todo",
	"877844db-f8be-45b2-ba3b-606c93871542": "Todo",
	"62e6162e-c5af-4f73-863d-e7c1f9fb03cc": "Todo",
	"d6a747d1-a448-440f-973a-129731f79dd3": "Todo",
	"ce2bb19b-bdfb-41e2-8562-14a65e26e0db": "Todo",
	"4e1f732d-5694-4af4-befb-487d982c66da": "Todo",
}

// PriorityFieldTemplateIDs はHeightの「Priority」フィールドを識別する
// fieldTemplateIdの既知の値です
var PriorityFieldTemplateIDs = map[string]bool{
	"e5b1cb21-c337-4511-903b-861ed1cc9ae5": true,
	"b88e01b3-3028-47f1-8076-e6967fc31710": true,
}

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		LinearAPIURL:    strings.TrimRight(getEnvWithDefault("LINEAR_API_URL", "https://api.linear.app/graphql"), "/"),
		LinearAPIKey:    os.Getenv("LINEAR_API_KEY"),
		LinearTeamKey:   os.Getenv("LINEAR_TEAM_KEY"),
		PageSize:        getEnvAsIntWithDefault("LINEAR_PAGE_SIZE", 100),
		HeightExportDir: getEnvWithDefault("HEIGHT_EXPORT_DIR", "height-export"),
		LinearCSV:       getEnvWithDefault("LINEAR_CSV", "linear_import.csv"),
		ParentMapping:   getEnvWithDefault("PARENT_MAPPING", "parent_mapping.json"),
		UseHeightIDs:    getEnvAsBoolWithDefault("USE_HEIGHT_IDS", false),
		GenerateBoth:    getEnvAsBoolWithDefault("GENERATE_BOTH", false),
	}

	return config, nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// デフォルト値付きで環境変数を真偽値として取得
func getEnvAsBoolWithDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
