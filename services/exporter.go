package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"heighttolinear/config"
	"heighttolinear/models"
	"heighttolinear/utils"
)

// LinearHeaders はLinearインポートCSVの固定カラムと順序を定義します
var LinearHeaders = []string{
	"ID", "Team", "Title", "Description", "Status", "Estimate", "Priority",
	"Project ID", "Project", "Creator", "Assignee", "Labels", "Cycle Number",
	"Cycle Name", "Cycle Start", "Cycle End", "Created", "Updated", "Started",
	"Triaged", "Completed", "Canceled", "Archived", "Due Date", "Parent issue",
	"Initiatives", "Project Milestone ID", "Project Milestone", "SLA Status", "Roadmaps",
}

// unitoSyncMarker はUnito同期で挿入されたマーカー行です (説明文から除去します)
const unitoSyncMarker = "┆Task is synchronized with this Gitlab issue by Unito"

// ExportData はHeightエクスポートの全入力ファイルの内容を保持します
type ExportData struct {
	Tasks    []models.HeightTask
	Users    []models.HeightUser
	Teams    []models.HeightTeam
	Statuses []models.HeightStatus
}

// Mappings はID解決用のルックアップテーブルを保持します
type Mappings struct {
	Teams    map[string]string // チームID → チーム名
	Users    map[string]string // ユーザーID → メールアドレス
	TaskIDs  map[string]string // タスクUUID → T-{index}
	Statuses map[string]string // ステータスUUID → ステータス名
}

// Exporter はHeightエクスポートをLinearインポートCSVに変換します
type Exporter struct {
	config *config.Config
}

// NewExporter は新しいエクスポーターを作成します
func NewExporter(cfg *config.Config) *Exporter {
	return &Exporter{
		config: cfg,
	}
}

// loadJSONFile はJSONファイルを読み込んでoutにデコードします
func loadJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("JSONファイル読み込みエラー: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("JSON解析エラー (%s): %w", filepath.Base(path), err)
	}

	return nil
}

// LoadExport はHeightエクスポートディレクトリから入力ファイルを読み込みます。
// tasks.json / users.json / teams.json は必須、statuses.json は任意です
func (e *Exporter) LoadExport() (*ExportData, error) {
	dir := e.config.HeightExportDir
	utils.LogInfo("Heightエクスポートを読み込みます: %s", dir)

	data := &ExportData{}

	if err := loadJSONFile(filepath.Join(dir, "tasks.json"), &data.Tasks); err != nil {
		return nil, err
	}
	if err := loadJSONFile(filepath.Join(dir, "users.json"), &data.Users); err != nil {
		return nil, err
	}
	if err := loadJSONFile(filepath.Join(dir, "teams.json"), &data.Teams); err != nil {
		return nil, err
	}

	// statuses.jsonは古いエクスポートには含まれないため、無ければスキップ
	statusesPath := filepath.Join(dir, "statuses.json")
	if _, err := os.Stat(statusesPath); err == nil {
		if err := loadJSONFile(statusesPath, &data.Statuses); err != nil {
			return nil, err
		}
	}

	utils.LogInfo("読み込み完了: タスク %d 件, ユーザー %d 件, チーム %d 件, ステータス %d 件",
		len(data.Tasks), len(data.Users), len(data.Teams), len(data.Statuses))

	return data, nil
}

// BuildMappings はID解決用のルックアップテーブルを構築します
func (e *Exporter) BuildMappings(data *ExportData) *Mappings {
	m := &Mappings{
		Teams:    make(map[string]string, len(data.Teams)),
		Users:    make(map[string]string, len(data.Users)),
		TaskIDs:  make(map[string]string, len(data.Tasks)),
		Statuses: make(map[string]string, len(data.Statuses)),
	}

	for _, team := range data.Teams {
		m.Teams[team.ID] = team.Name
	}

	for _, user := range data.Users {
		if user.Email != "" {
			m.Users[user.ID] = user.Email
		}
	}

	for _, task := range data.Tasks {
		m.TaskIDs[task.ID] = heightID(task)
	}

	for _, status := range data.Statuses {
		m.Statuses[status.ID] = status.Value
	}

	return m
}

// heightID はタスクの表示用ID (T-{index}) を返します
func heightID(task models.HeightTask) string {
	return fmt.Sprintf("T-%d", task.Index)
}

// convertDate はISO 8601の日付をLinearの日付形式に変換します。
// 例: "2025-01-08T10:17:10.439Z" → "Wed Jan 08 2025 10:17:10 GMT+0000 (GMT)"
// 変換できない日付は警告を出して空文字を返します (手動確認用)
func convertDate(isoDate string) string {
	if isoDate == "" {
		return ""
	}

	t, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		utils.LogWarn("日付変換エラー: '%s'", isoDate)
		return ""
	}

	return t.UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (GMT)"
}

// cleanDescription は説明文を整形します
func cleanDescription(description string) string {
	if description == "" {
		return ""
	}

	// インポート時に追加されたマーカーを除去
	description = strings.ReplaceAll(description, unitoSyncMarker, "")

	// 各行の末尾の空白を除去
	lines := strings.Split(description, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractPriority はfieldsからPriority値を取り出します
func extractPriority(fields []models.HeightField) string {
	for _, field := range fields {
		if field.Name != "Priority" && !config.PriorityFieldTemplateIDs[field.FieldTemplateID] {
			continue
		}

		if field.Label != nil && field.Label.Value != "" {
			return field.Label.Value
		}
		if field.SelectValue != nil && field.SelectValue.Value != "" {
			return field.SelectValue.Value
		}
	}

	return ""
}

// resolveStatus はHeightステータスをLinearの語彙に正規化します
func (e *Exporter) resolveStatus(task models.HeightTask, m *Mappings) string {
	statusName := task.Status
	if name, ok := m.Statuses[task.Status]; ok {
		statusName = name
	}

	status := statusName
	if mapped, ok := config.StatusMapping[statusName]; ok {
		status = mapped
	} else if mapped, ok := config.StatusMapping[task.Status]; ok {
		status = mapped
	}

	// 完了日があるタスクはLinear側の要件で "Done" にする必要があります
	if task.CompletedAt != "" {
		status = "Done"
	}

	return status
}

// TransformTask は1つのHeightタスクをLinear CSVの行に変換します
func (e *Exporter) TransformTask(task models.HeightTask, m *Mappings, useHeightIDs bool) models.CSVRecord {
	// チーム名 (最初のチームのみ)
	team := ""
	if len(task.TeamIDs) > 0 {
		team = m.Teams[task.TeamIDs[0]]
	}

	// 作成者と担当者のメールアドレス
	creator := m.Users[task.CreatedUserID]
	assignee := ""
	if len(task.AssigneesIDs) > 0 {
		assignee = m.Users[task.AssigneesIDs[0]]
	}

	// 親タスクの表示用ID
	parentIssue := ""
	if task.ParentTaskID != "" {
		parentIssue = m.TaskIDs[task.ParentTaskID]
	}

	status := e.resolveStatus(task, m)
	priority := extractPriority(task.Fields)

	// 説明文の先頭にトレーサビリティタグを付与。
	// このタグがHeight IDとLinear IDを結ぶ唯一のリンクになるため、形式は固定です
	id := heightID(task)
	description := cleanDescription(task.Description)
	if description != "" {
		description = fmt.Sprintf("[Imported from Height: %s]\n\n%s", id, description)
	} else {
		description = fmt.Sprintf("[Imported from Height: %s]", id)
	}

	// IDカラム: 空のままLinearに採番させるか、Height IDを使うか
	issueID := ""
	if useHeightIDs {
		issueID = id
	}

	// 完了日が作成日より前の場合は最終更新日で代用
	completedAt := task.CompletedAt
	if completedAt != "" && task.CreatedAt != "" {
		completedTime, err1 := time.Parse(time.RFC3339, completedAt)
		createdTime, err2 := time.Parse(time.RFC3339, task.CreatedAt)
		if err1 == nil && err2 == nil && completedTime.Before(createdTime) {
			completedAt = task.LastActivityAt
		}
	}

	return models.CSVRecord{
		"ID":                   issueID,
		"Team":                 team,
		"Title":                task.Name,
		"Description":          description,
		"Status":               status,
		"Estimate":             "",
		"Priority":             priority,
		"Project ID":           "",
		"Project":              "",
		"Creator":              creator,
		"Assignee":             assignee,
		"Labels":               "",
		"Cycle Number":         "",
		"Cycle Name":           "",
		"Cycle Start":          "",
		"Cycle End":            "",
		"Created":              convertDate(task.CreatedAt),
		"Updated":              convertDate(task.LastActivityAt),
		"Started":              convertDate(task.StartedAt),
		"Triaged":              "",
		"Completed":            convertDate(completedAt),
		"Canceled":             "",
		"Archived":             "",
		"Due Date":             "",
		"Parent issue":         parentIssue,
		"Initiatives":          "",
		"Project Milestone ID": "",
		"Project Milestone":    "",
		"SLA Status":           "",
		"Roadmaps":             "",
	}
}

// BuildParentMapping は子Height ID → 親Height ID のマッピングを構築します。
// 親を持たないタスクはマッピングに含まれません
func (e *Exporter) BuildParentMapping(tasks []models.HeightTask, m *Mappings) models.ParentMapping {
	mapping := make(models.ParentMapping)

	for _, task := range tasks {
		if task.ParentTaskID == "" {
			continue
		}

		parentID := m.TaskIDs[task.ParentTaskID]
		if parentID == "" {
			continue
		}

		mapping[heightID(task)] = parentID
	}

	return mapping
}

// WriteCSV はLinearインポート用のCSVを書き込みます
func (e *Exporter) WriteCSV(path string, records []models.CSVRecord) error {
	utils.LogInfo("Linear CSVファイル '%s' を作成します", path)

	if len(records) == 0 {
		return fmt.Errorf("書き込むデータがありません")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSVファイル作成エラー: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(LinearHeaders); err != nil {
		return fmt.Errorf("ヘッダー書き込みエラー: %w", err)
	}

	for _, record := range records {
		row := make([]string, len(LinearHeaders))
		for i, header := range LinearHeaders {
			row[i] = record[header]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("行書き込みエラー: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV書き込み完了エラー: %w", err)
	}

	utils.LogInfo("CSV書き込み完了: %d 行", len(records))
	return nil
}

// WriteParentMapping は親子マッピングをJSONファイルに書き込みます
func (e *Exporter) WriteParentMapping(path string, mapping models.ParentMapping) error {
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("マッピングファイル書き込みエラー: %w", err)
	}

	utils.LogInfo("親子マッピングを書き込みました: %s (%d 件)", path, len(mapping))
	return nil
}

// withIDsPath は "_with_ids" 付きの出力パスを返します
// (例: linear_import.csv → linear_import_with_ids.csv)
func withIDsPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_with_ids" + ext
}

// Run はエクスポート処理全体を実行します
func (e *Exporter) Run() error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "CSVエクスポート")

	// 入力の読み込み
	data, err := e.LoadExport()
	if err != nil {
		return fmt.Errorf("Heightエクスポート読み込みエラー: %w", err)
	}

	// ルックアップテーブルの構築
	utils.LogInfo("IDマッピングを構築しています...")
	mappings := e.BuildMappings(data)

	// 親子マッピングJSONの生成
	parentMapping := e.BuildParentMapping(data.Tasks, mappings)
	if err := e.WriteParentMapping(e.config.ParentMapping, parentMapping); err != nil {
		return err
	}

	// 生成するCSVフォーマットの決定
	type outputFormat struct {
		path         string
		useHeightIDs bool
	}

	var formats []outputFormat
	if e.config.GenerateBoth {
		formats = []outputFormat{
			{e.config.LinearCSV, false},
			{withIDsPath(e.config.LinearCSV), true},
		}
	} else {
		formats = []outputFormat{
			{e.config.LinearCSV, e.config.UseHeightIDs},
		}
	}

	// CSVの生成
	for _, format := range formats {
		if format.useHeightIDs {
			utils.LogInfo("Height ID入りのCSVを生成しています... (実験的モード)")
		} else {
			utils.LogInfo("IDカラムを空にしたCSVを生成しています...")
		}

		records := make([]models.CSVRecord, 0, len(data.Tasks))
		for i, task := range data.Tasks {
			records = append(records, e.TransformTask(task, mappings, format.useHeightIDs))

			// 進捗を表示（大量データの場合）
			if i > 0 && i%100 == 0 {
				utils.LogInfo("変換中... %d/%d 件完了", i, len(data.Tasks))
			}
		}

		if err := e.WriteCSV(format.path, records); err != nil {
			return err
		}
	}

	utils.LogInfo("エクスポートが完了しました: タスク %d 件, 親子関係 %d 件", len(data.Tasks), len(parentMapping))
	return nil
}
