package services

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"heighttolinear/config"
	"heighttolinear/models"
	"heighttolinear/utils"
)

// LinearAPI はReconcilerが必要とするLinear APIの操作です
type LinearAPI interface {
	GetAllIssues(teamKey string) ([]models.LinearIssue, error)
	UpdateIssueParent(issueID, parentID string) error
}

// ConfirmFunc は更新実行前の確認プロンプトです。
// falseを返すと更新せずに終了します
type ConfirmFunc func(updates []ParentUpdate) (bool, error)

// ParentUpdate は必要な親子関係の更新1件を表します
type ParentUpdate struct {
	ChildHeightID    string
	ParentHeightID   string
	ChildLinearID    string
	ParentLinearID   string
	ChildIdentifier  string
	ParentIdentifier string
	ChildTitle       string
}

// Reconciler はインポート後のLinearイシューの親子関係を
// 親子マッピングに一致させます
type Reconciler struct {
	config *config.Config
	client LinearAPI
}

// NewReconciler は新しいReconcilerを作成します
func NewReconciler(cfg *config.Config, client LinearAPI) *Reconciler {
	return &Reconciler{
		config: cfg,
		client: client,
	}
}

// heightTagPattern は説明文中のトレーサビリティタグにマッチします。
// Linearのインポーターが角括弧をエスケープする場合があるため、
// バックスラッシュは任意です
var heightTagPattern = regexp.MustCompile(`\\?\[Imported from Height: (T-\d+)\\?\]`)

// ExtractHeightID は説明文からHeight IDを取り出します。
// タグが無い場合は空文字を返します
func ExtractHeightID(description string) string {
	match := heightTagPattern.FindStringSubmatch(description)
	if match == nil {
		return ""
	}
	return match[1]
}

// BuildIssueMapping はHeight ID → Linearイシュー情報のマッピングを構築します。
// タグを持たないイシューは対象外です (エラーにはしません)
func BuildIssueMapping(issues []models.LinearIssue) models.IssueMapping {
	mapping := make(models.IssueMapping)

	for _, issue := range issues {
		id := ExtractHeightID(issue.Description)
		if id == "" {
			continue
		}

		mapping[id] = models.LinkedIssue{
			LinearID:      issue.ID,
			Identifier:    issue.Identifier,
			Title:         issue.Title,
			CurrentParent: issue.Parent,
		}
	}

	return mapping
}

// LoadParentMapping は親子マッピングJSONを読み込みます
func LoadParentMapping(path string) (models.ParentMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("親子マッピング読み込みエラー (先にcsv_exportを実行してください): %w", err)
	}

	var mapping models.ParentMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("親子マッピング解析エラー: %w", err)
	}

	return mapping, nil
}

// ComputeUpdates は必要な更新の一覧を計算します。
// 子または親が解決できないペアはスキップし、すでに正しく設定されている
// ペアはno-opとして除外します (この除外が再実行時の冪等性を保証します)
func (r *Reconciler) ComputeUpdates(parents models.ParentMapping, issues models.IssueMapping) []ParentUpdate {
	// 出力を安定させるため子IDでソート
	childIDs := make([]string, 0, len(parents))
	for childID := range parents {
		childIDs = append(childIDs, childID)
	}
	sort.Strings(childIDs)

	var updates []ParentUpdate
	skippedChild := 0
	skippedParent := 0
	alreadySet := 0

	for _, childID := range childIDs {
		parentID := parents[childID]

		child, ok := issues[childID]
		if !ok {
			// インポート対象外のタスクは想定内のスキップ
			utils.LogWarn("子 %s がLinear側に見つかりません (スキップ)", childID)
			skippedChild++
			continue
		}

		parent, ok := issues[parentID]
		if !ok {
			utils.LogWarn("%s の親 %s がLinear側に見つかりません (スキップ)", childID, parentID)
			skippedParent++
			continue
		}

		// すでに正しい親が設定されているかチェック
		if child.CurrentParent != nil && child.CurrentParent.ID == parent.LinearID {
			alreadySet++
			continue
		}

		updates = append(updates, ParentUpdate{
			ChildHeightID:    childID,
			ParentHeightID:   parentID,
			ChildLinearID:    child.LinearID,
			ParentLinearID:   parent.LinearID,
			ChildIdentifier:  child.Identifier,
			ParentIdentifier: parent.Identifier,
			ChildTitle:       child.Title,
		})
	}

	utils.LogInfo("差分計算完了: 更新 %d 件, 設定済み %d 件, 子不明 %d 件, 親不明 %d 件",
		len(updates), alreadySet, skippedChild, skippedParent)

	return updates
}

// ApplyUpdates は更新を1件ずつ順番に適用します。
// 個別の失敗は記録するだけで残りの更新は続行します (失敗分は再実行で回復)
func (r *Reconciler) ApplyUpdates(updates []ParentUpdate) (success, failed int) {
	for i, update := range updates {
		err := r.client.UpdateIssueParent(update.ChildLinearID, update.ParentLinearID)
		if err != nil {
			utils.LogError("[%d/%d] 更新失敗 %s (%s): %v",
				i+1, len(updates), update.ChildIdentifier, update.ChildHeightID, err)
			failed++
			continue
		}

		utils.LogInfo("[%d/%d] %s (%s) → 親: %s (%s)",
			i+1, len(updates), update.ChildIdentifier, update.ChildHeightID,
			update.ParentIdentifier, update.ParentHeightID)
		success++
	}

	return success, failed
}

// Run は親子関係の整合処理全体を実行します。
// confirmは更新実行前に呼ばれ、falseを返すと何も変更せずに終了します
func (r *Reconciler) Run(confirm ConfirmFunc) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "親子関係の更新")

	// Step 1: Linearから全イシューを取得
	if r.config.LinearTeamKey != "" {
		utils.LogInfo("Linearからイシューを取得しています (チーム: %s)...", r.config.LinearTeamKey)
	} else {
		utils.LogInfo("Linearからイシューを取得しています...")
	}

	issues, err := r.client.GetAllIssues(r.config.LinearTeamKey)
	if err != nil {
		return fmt.Errorf("イシュー取得エラー: %w", err)
	}
	utils.LogInfo("イシューを取得しました: %d 件", len(issues))

	// Step 2: トレーサビリティタグから逆引きマッピングを構築
	issueMapping := BuildIssueMapping(issues)
	utils.LogInfo("Height IDタグ付きのイシュー: %d 件", len(issueMapping))

	if len(issueMapping) == 0 {
		return fmt.Errorf("Height IDタグを持つイシューが見つかりません (csv_exportで生成したCSVをインポートしましたか?)")
	}

	// 親子マッピングの読み込み
	parents, err := LoadParentMapping(r.config.ParentMapping)
	if err != nil {
		return err
	}
	utils.LogInfo("親子マッピングをロードしました: %d 件", len(parents))

	// Step 3: 差分の計算
	updates := r.ComputeUpdates(parents, issueMapping)

	if len(updates) == 0 {
		utils.LogInfo("すべての親子関係はすでに正しく設定されています")
		return nil
	}

	// サンプルを表示 (最初の5件)
	utils.LogInfo("更新予定 (最初の5件):")
	for i, update := range updates {
		if i >= 5 {
			break
		}
		utils.LogInfo("  %s (%s) → 親: %s (%s)",
			update.ChildIdentifier, update.ChildHeightID,
			update.ParentIdentifier, update.ParentHeightID)
	}

	// Step 4: 実行前の確認
	ok, err := confirm(updates)
	if err != nil {
		return fmt.Errorf("確認プロンプトエラー: %w", err)
	}
	if !ok {
		utils.LogInfo("中止しました。何も変更していません")
		return nil
	}

	// Step 5: 更新の適用
	utils.LogInfo("親子関係を更新しています: %d 件", len(updates))
	success, failed := r.ApplyUpdates(updates)

	utils.LogInfo("更新完了: 成功=%d, 失敗=%d, 合計=%d", success, failed, len(updates))
	if failed > 0 {
		utils.LogWarn("失敗した更新があります。再実行すると未適用分だけ再試行されます")
	}

	return nil
}
