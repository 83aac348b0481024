package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"heighttolinear/config"
	"heighttolinear/services"
	"heighttolinear/utils"
)

func main() {
	// コマンドラインフラグの定義
	inputDir := flag.String("input-dir", "", "Heightエクスポートディレクトリのパス（指定しない場合は環境変数から取得）")
	output := flag.String("output", "", "Linearインポート用CSVの出力先（指定しない場合は環境変数から取得）")
	mapping := flag.String("mapping", "", "親子マッピングJSONの出力先（指定しない場合は環境変数から取得）")
	useHeightIDs := flag.Bool("use-height-ids", false, "IDカラムにHeight ID (T-XXX) を使用する（実験的）")
	generateBoth := flag.Bool("generate-both", false, "空ID版とHeight ID版の両方のCSVを生成する")
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

	utils.LogInfo("Height JSON → Linear CSV 変換ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// コマンドラインで指定された場合、設定を上書き
	if *inputDir != "" {
		cfg.HeightExportDir = *inputDir
		utils.LogInfo("入力ディレクトリを指定: %s", cfg.HeightExportDir)
	}

	if *output != "" {
		cfg.LinearCSV = *output
		utils.LogInfo("出力ファイルを指定: %s", cfg.LinearCSV)
	}

	if *mapping != "" {
		cfg.ParentMapping = *mapping
		utils.LogInfo("マッピングファイルを指定: %s", cfg.ParentMapping)
	}

	if *useHeightIDs {
		cfg.UseHeightIDs = true
	}

	if *generateBoth {
		cfg.GenerateBoth = true
	}

	// エクスポートの実行
	exporter := services.NewExporter(cfg)
	if err := exporter.Run(); err != nil {
		utils.LogError("エクスポートエラー: %v", err)
		os.Exit(1)
	}

	// 処理時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("変換が完了しました。処理時間: %s", elapsed)
	utils.LogInfo("次のステップ: LinearのCSVインポーターで %s を取り込んだ後、parent_update を実行してください", cfg.LinearCSV)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Height JSON → Linear CSV 変換ツール

使用方法:
  %s [オプション]

オプション:
  -input-dir ディレクトリ  Heightエクスポートディレクトリ
  -output ファイル         出力するLinear CSV
  -mapping ファイル        出力する親子マッピングJSON
  -use-height-ids          IDカラムにHeight IDを使用する（実験的）
  -generate-both           両方のCSVフォーマットを生成する
  -help                    このヘルプを表示する

環境変数:
  HEIGHT_EXPORT_DIR   Heightエクスポートディレクトリ (デフォルト: height-export)
  LINEAR_CSV          Linearインポート用CSVファイルパス (デフォルト: linear_import.csv)
  PARENT_MAPPING      親子マッピングJSONファイルパス (デフォルト: parent_mapping.json)
  USE_HEIGHT_IDS      IDカラムにHeight IDを使用する (デフォルト: false)
  GENERATE_BOTH       両方のCSVフォーマットを生成する (デフォルト: false)

説明:
  このツールはHeightからエクスポートしたJSONファイル
  (tasks.json / users.json / teams.json / statuses.json) を
  LinearのCSVインポート形式に変換します。

  同時に生成される parent_mapping.json は、インポート後に
  parent_update ツールで親子関係を復元するために使用します。
`, os.Args[0])
}
