package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heighttolinear/config"
	"heighttolinear/models"
)

// fakeLinearAPI はテスト用のLinear APIです。
// UpdateIssueParentの呼び出しを記録し、保持しているイシューの親も更新するため、
// 2回目のRunで冪等性を検証できます
type fakeLinearAPI struct {
	issues      []models.LinearIssue
	updateCalls [][2]string
	failIDs     map[string]bool
}

func (f *fakeLinearAPI) GetAllIssues(teamKey string) ([]models.LinearIssue, error) {
	return f.issues, nil
}

func (f *fakeLinearAPI) UpdateIssueParent(issueID, parentID string) error {
	f.updateCalls = append(f.updateCalls, [2]string{issueID, parentID})

	if f.failIDs[issueID] {
		return fmt.Errorf("simulated API failure")
	}

	for i := range f.issues {
		if f.issues[i].ID == issueID {
			f.issues[i].Parent = &models.LinearIssueRef{ID: parentID}
		}
	}
	return nil
}

// 常に実行を承認する確認プロンプト
func autoConfirm(updates []ParentUpdate) (bool, error) {
	return true, nil
}

// 親子マッピングJSONをテンポラリファイルに書き込みます
func writeParentMapping(t *testing.T, mapping string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parent_mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(mapping), 0644))
	return path
}

func taggedIssue(id, identifier, heightID string, parent *models.LinearIssueRef) models.LinearIssue {
	return models.LinearIssue{
		ID:          id,
		Identifier:  identifier,
		Title:       "issue " + heightID,
		Description: fmt.Sprintf("[Imported from Height: %s]\n\nbody", heightID),
		Parent:      parent,
	}
}

// トレーサビリティタグの抽出
func TestExtractHeightID(t *testing.T) {
	assert.Equal(t, "T-423", ExtractHeightID("[Imported from Height: T-423]\n\n本文"))

	// インポーターが角括弧をエスケープした場合
	assert.Equal(t, "T-423", ExtractHeightID(`\[Imported from Height: T-423\]`))

	// タグが無い・形式が違う場合は空
	assert.Equal(t, "", ExtractHeightID(""))
	assert.Equal(t, "", ExtractHeightID("ただの説明文"))
	assert.Equal(t, "", ExtractHeightID("[Imported from Height: 423]"))
}

// 逆引きマッピング: タグの無いイシューは除外されること
func TestBuildIssueMapping(t *testing.T) {
	issues := []models.LinearIssue{
		taggedIssue("lin-1", "ENG-1", "T-1", nil),
		{ID: "lin-x", Identifier: "ENG-99", Description: "手動で作ったイシュー"},
		taggedIssue("lin-2", "ENG-2", "T-2", &models.LinearIssueRef{ID: "lin-1"}),
	}

	mapping := BuildIssueMapping(issues)
	require.Len(t, mapping, 2)

	assert.Equal(t, "lin-1", mapping["T-1"].LinearID)
	assert.Equal(t, "ENG-2", mapping["T-2"].Identifier)
	require.NotNil(t, mapping["T-2"].CurrentParent)
	assert.Equal(t, "lin-1", mapping["T-2"].CurrentParent.ID)
}

// 差分計算: 不明な子・親はスキップ、設定済みはno-op、未設定だけが更新対象
func TestComputeUpdates(t *testing.T) {
	cfg := &config.Config{}
	r := NewReconciler(cfg, &fakeLinearAPI{})

	issues := models.IssueMapping{
		"T-1": {LinearID: "lin-1", Identifier: "ENG-1"},
		"T-2": {LinearID: "lin-2", Identifier: "ENG-2"},
		"T-3": {LinearID: "lin-3", Identifier: "ENG-3",
			CurrentParent: &models.LinearIssueRef{ID: "lin-1"}},
	}

	parents := models.ParentMapping{
		"T-2":  "T-1", // 更新が必要
		"T-3":  "T-1", // 設定済み → no-op
		"T-4":  "T-1", // 子がLinear側に無い → スキップ
		"T-2x": "T-9", // 子も親も無い → スキップ (子側で判定)
		"T-1":  "T-9", // 親がLinear側に無い → スキップ
	}

	updates := r.ComputeUpdates(parents, issues)
	require.Len(t, updates, 1)

	assert.Equal(t, "T-2", updates[0].ChildHeightID)
	assert.Equal(t, "T-1", updates[0].ParentHeightID)
	assert.Equal(t, "lin-2", updates[0].ChildLinearID)
	assert.Equal(t, "lin-1", updates[0].ParentLinearID)
}

// 差分計算の出力順が子IDのソート順で安定していること
func TestComputeUpdatesStableOrder(t *testing.T) {
	r := NewReconciler(&config.Config{}, &fakeLinearAPI{})

	issues := models.IssueMapping{
		"T-1":  {LinearID: "lin-1"},
		"T-2":  {LinearID: "lin-2"},
		"T-10": {LinearID: "lin-10"},
	}
	parents := models.ParentMapping{
		"T-2":  "T-1",
		"T-10": "T-1",
	}

	updates := r.ComputeUpdates(parents, issues)
	require.Len(t, updates, 2)
	assert.Equal(t, "T-10", updates[0].ChildHeightID)
	assert.Equal(t, "T-2", updates[1].ChildHeightID)
}

// 個別の更新失敗が残りの更新を止めないこと
func TestApplyUpdatesContinuesOnFailure(t *testing.T) {
	fake := &fakeLinearAPI{failIDs: map[string]bool{"lin-2": true}}
	r := NewReconciler(&config.Config{}, fake)

	updates := []ParentUpdate{
		{ChildLinearID: "lin-2", ParentLinearID: "lin-1", ChildIdentifier: "ENG-2"},
		{ChildLinearID: "lin-3", ParentLinearID: "lin-1", ChildIdentifier: "ENG-3"},
	}

	success, failed := r.ApplyUpdates(updates)
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, failed)
	assert.Len(t, fake.updateCalls, 2)
}

// Run全体: 2回目の実行ではミューテーションが発生しないこと (冪等性)
func TestRunIdempotent(t *testing.T) {
	fake := &fakeLinearAPI{
		issues: []models.LinearIssue{
			taggedIssue("lin-1", "ENG-1", "T-1", nil),
			taggedIssue("lin-2", "ENG-2", "T-2", nil),
			taggedIssue("lin-3", "ENG-3", "T-3", nil),
		},
	}

	cfg := &config.Config{
		ParentMapping: writeParentMapping(t, `{"T-2": "T-1", "T-3": "T-1"}`),
	}
	r := NewReconciler(cfg, fake)

	// 1回目: 2件の更新
	require.NoError(t, r.Run(autoConfirm))
	assert.Len(t, fake.updateCalls, 2)

	// 2回目: すべてno-opでミューテーションなし
	require.NoError(t, r.Run(autoConfirm))
	assert.Len(t, fake.updateCalls, 2)
}

// 確認プロンプトで拒否した場合は何も変更しないこと
func TestRunConfirmDeclined(t *testing.T) {
	fake := &fakeLinearAPI{
		issues: []models.LinearIssue{
			taggedIssue("lin-1", "ENG-1", "T-1", nil),
			taggedIssue("lin-2", "ENG-2", "T-2", nil),
		},
	}

	cfg := &config.Config{
		ParentMapping: writeParentMapping(t, `{"T-2": "T-1"}`),
	}
	r := NewReconciler(cfg, fake)

	decline := func(updates []ParentUpdate) (bool, error) {
		return false, nil
	}

	require.NoError(t, r.Run(decline))
	assert.Empty(t, fake.updateCalls)
}

// タグ付きイシューが1件も無い場合はエラーになること
func TestRunNoTaggedIssues(t *testing.T) {
	fake := &fakeLinearAPI{
		issues: []models.LinearIssue{
			{ID: "lin-x", Identifier: "ENG-99", Description: "タグなし"},
		},
	}

	cfg := &config.Config{
		ParentMapping: writeParentMapping(t, `{"T-2": "T-1"}`),
	}
	r := NewReconciler(cfg, fake)

	err := r.Run(autoConfirm)
	require.Error(t, err)
	assert.Empty(t, fake.updateCalls)
}

// マッピングファイルが無い場合のエラー
func TestLoadParentMappingMissing(t *testing.T) {
	_, err := LoadParentMapping(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
