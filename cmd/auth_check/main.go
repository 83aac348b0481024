package main

import (
	"flag"
	"fmt"
	"os"

	"heighttolinear/api"
	"heighttolinear/config"
	"heighttolinear/utils"
)

func main() {
	// コマンドラインフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("Linear 認証チェックツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// APIキーの確認（ネットワークアクセスの前にチェック）
	if cfg.LinearAPIKey == "" {
		utils.LogError("LINEAR_API_KEY が設定されていません")
		os.Exit(1)
	}

	// Linear認証のチェック
	utils.LogInfo("Linear APIに接続しています: %s", cfg.LinearAPIURL)
	client := api.NewLinearClient(cfg)
	if err := client.CheckAuth(); err != nil {
		utils.LogError("Linear認証エラー: %v", err)
		os.Exit(1)
	}

	utils.LogInfo("Linear認証成功。parent_update を実行できます")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Linear 認証チェックツール

使用方法:
  %s

環境変数:
  LINEAR_API_KEY      Linear APIキー (必須)
  LINEAR_API_URL      Linear GraphQL APIのURL (デフォルト: https://api.linear.app/graphql)

説明:
  このツールはLinear APIの認証情報を確認します。
  parent_update を実行する前の接続確認に使用してください。
`, os.Args[0])
}
