package models

// HeightTask はHeightエクスポートのタスクを表します
type HeightTask struct {
	ID             string        `json:"id"`
	Index          int           `json:"index"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	TeamIDs        []string      `json:"teamIds"`
	CreatedUserID  string        `json:"createdUserId"`
	AssigneesIDs   []string      `json:"assigneesIds"`
	ParentTaskID   string        `json:"parentTaskId"`
	Fields         []HeightField `json:"fields"`
	CreatedAt      string        `json:"createdAt"`
	LastActivityAt string        `json:"lastActivityAt"`
	StartedAt      string        `json:"startedAt"`
	CompletedAt    string        `json:"completedAt"`
}

// HeightField はタスクの汎用key/valueフィールドを表します
// (Priorityなどのカスタムフィールドがここに入ります)
type HeightField struct {
	Name            string            `json:"name"`
	FieldTemplateID string            `json:"fieldTemplateId"`
	Label           *HeightFieldValue `json:"label"`
	SelectValue     *HeightFieldValue `json:"selectValue"`
}

// HeightFieldValue はフィールドの選択値を表します
type HeightFieldValue struct {
	Value string `json:"value"`
}

// HeightUser はHeightのユーザーを表します
type HeightUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HeightTeam はHeightのチームを表します
type HeightTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HeightStatus はstatuses.jsonのステータス定義を表します
type HeightStatus struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// LinearIssueRef はLinearイシューへの参照 (親子関係など) を表します
type LinearIssueRef struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
}

// LinearIssue はLinear APIから取得したイシューを表します
type LinearIssue struct {
	ID          string          `json:"id"`
	Identifier  string          `json:"identifier"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Parent      *LinearIssueRef `json:"parent"`
}

// LinkedIssue はHeight IDから辿れるLinearイシューの情報です
type LinkedIssue struct {
	LinearID      string
	Identifier    string
	Title         string
	CurrentParent *LinearIssueRef
}

// CSVRecord はCSVの1行を表します (ヘッダー名→値のマップ)
type CSVRecord map[string]string

// ParentMapping は子のHeight ID → 親のHeight ID のマッピングを表します
type ParentMapping map[string]string

// IssueMapping はHeight ID → Linearイシュー情報のマッピングを表します
type IssueMapping map[string]LinkedIssue
