package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"heighttolinear/api"
	"heighttolinear/config"
	"heighttolinear/services"
	"heighttolinear/utils"
)

func main() {
	// コマンドラインフラグの定義
	mapping := flag.String("mapping", "", "親子マッピングJSONのパス（指定しない場合は環境変数から取得）")
	team := flag.String("team", "", "対象チームのキー（例: 'NODE'。指定しない場合は全イシュー）")
	yes := flag.Bool("yes", false, "確認プロンプトをスキップして更新を実行する")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	utils.LogInfo("Linear 親子関係更新ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// コマンドラインで指定された場合、設定を上書き
	if *mapping != "" {
		cfg.ParentMapping = *mapping
		utils.LogInfo("マッピングファイルを指定: %s", cfg.ParentMapping)
	}

	if *team != "" {
		cfg.LinearTeamKey = *team
		utils.LogInfo("対象チームを指定: %s", cfg.LinearTeamKey)
	}

	// APIキーの確認（ネットワークアクセスの前にチェック）
	if cfg.LinearAPIKey == "" {
		utils.LogError("LINEAR_API_KEY が設定されていません")
		utils.LogError("Linearの Settings > API > Personal API keys でAPIキーを発行し、環境変数に設定してください")
		os.Exit(1)
	}

	// マッピングファイルの存在確認
	if _, err := os.Stat(cfg.ParentMapping); os.IsNotExist(err) {
		utils.LogError("親子マッピングファイルが見つかりません: %s", cfg.ParentMapping)
		utils.LogError("先に csv_export ツールを実行して、マッピングを生成してください。")
		os.Exit(1)
	}

	// Linear認証情報の確認
	utils.LogInfo("Linear認証情報を確認しています...")
	client := api.NewLinearClient(cfg)
	if err := client.CheckAuth(); err != nil {
		utils.LogError("Linear認証エラー: %v", err)
		utils.LogError("LINEAR_API_KEY を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("Linear認証成功")

	// 整合処理の実行
	reconciler := services.NewReconciler(cfg, client)
	if err := reconciler.Run(confirmFunc(*yes)); err != nil {
		utils.LogError("親子関係更新エラー: %v", err)
		os.Exit(1)
	}

	// 処理時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("処理が完了しました。処理時間: %s", elapsed)
}

// confirmFunc は更新実行前の確認プロンプトを返します。
// -yes指定時はプロンプトを出さずに実行します
func confirmFunc(skipPrompt bool) services.ConfirmFunc {
	return func(updates []services.ParentUpdate) (bool, error) {
		if skipPrompt {
			return true, nil
		}

		confirmed := false
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("%d 件のイシューの親子関係を更新します。実行しますか?", len(updates))).
			Affirmative("実行する").
			Negative("中止する").
			Value(&confirmed)

		if err := prompt.Run(); err != nil {
			if err == huh.ErrUserAborted {
				return false, nil
			}
			return false, err
		}

		return confirmed, nil
	}
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Linear 親子関係更新ツール

使用方法:
  %s [オプション]

オプション:
  -mapping ファイル   親子マッピングJSONのパス
  -team キー          対象チームのキー（例: 'NODE'）
  -yes                確認プロンプトをスキップする
  -help               このヘルプを表示する

環境変数:
  LINEAR_API_KEY      Linear APIキー (必須)
  LINEAR_API_URL      Linear GraphQL APIのURL (デフォルト: https://api.linear.app/graphql)
  LINEAR_TEAM_KEY     対象チームのキー (任意)
  LINEAR_PAGE_SIZE    イシュー取得の1ページあたりの件数 (デフォルト: 100)
  PARENT_MAPPING      親子マッピングJSONファイルパス (デフォルト: parent_mapping.json)

説明:
  このツールはLinearへのCSVインポート完了後に実行します。

  Linearから全イシューを取得し、説明文中のトレーサビリティタグ
  ([Imported from Height: T-XXX]) からHeight ID → Linear IDの
  逆引きマッピングを構築した上で、parent_mapping.json に記録された
  親子関係をLinear APIで復元します。

  すでに正しく設定されている関係はスキップされるため、
  途中で失敗しても再実行すれば未適用分だけが再試行されます。

  APIのレート制限にかかった場合は、しばらく待ってから再実行してください。
`, os.Args[0])
}
