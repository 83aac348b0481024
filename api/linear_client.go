package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"heighttolinear/config"
	"heighttolinear/models"
)

// LinearClient はLinear GraphQL APIとのやり取りを処理します
type LinearClient struct {
	config *config.Config
	client *http.Client
}

// NewLinearClient は新しいLinearクライアントを作成します
func NewLinearClient(cfg *config.Config) *LinearClient {
	return &LinearClient{
		config: cfg,
		client: &http.Client{},
	}
}

// graphQLError はGraphQLレスポンスのエラー項目を表します
type graphQLError struct {
	Message string `json:"message"`
}

// doQuery はGraphQLクエリを実行し、dataフィールドをoutにデコードします
func (l *LinearClient) doQuery(query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query": query,
	}
	if variables != nil {
		payload["variables"] = variables
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	req, err := http.NewRequest("POST", l.config.LinearAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("Authorization", l.config.LinearAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("APIリクエスト失敗 (status %d): %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("GraphQLエラー: %s", strings.Join(messages, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("データ解析エラー: %w", err)
		}
	}

	return nil
}

// CheckAuth はLinear認証をチェックします
func (l *LinearClient) CheckAuth() error {
	query := `query { viewer { id name email } }`

	var result struct {
		Viewer struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"viewer"`
	}

	if err := l.doQuery(query, nil, &result); err != nil {
		return err
	}

	if result.Viewer.ID == "" {
		return fmt.Errorf("認証失敗: viewerが取得できません")
	}

	return nil
}

// GetAllIssues はLinearから全イシューを取得します。
// teamKeyが空でない場合はそのチームのイシューに限定します
func (l *LinearClient) GetAllIssues(teamKey string) ([]models.LinearIssue, error) {
	var issues []models.LinearIssue

	filterClause := ""
	if teamKey != "" {
		filterClause = fmt.Sprintf(`filter: { team: { key: { eq: %q } } }, `, teamKey)
	}

	cursor := ""
	hasNextPage := true

	for hasNextPage {
		afterClause := ""
		if cursor != "" {
			afterClause = fmt.Sprintf(`, after: %q`, cursor)
		}

		query := fmt.Sprintf(`
		query {
			issues(%sfirst: %d%s) {
				nodes {
					id
					identifier
					title
					description
					parent {
						id
						identifier
					}
				}
				pageInfo {
					hasNextPage
					endCursor
				}
			}
		}`, filterClause, l.config.PageSize, afterClause)

		var result struct {
			Issues struct {
				Nodes    []models.LinearIssue `json:"nodes"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"issues"`
		}

		if err := l.doQuery(query, nil, &result); err != nil {
			return nil, fmt.Errorf("イシュー取得エラー: %w", err)
		}

		issues = append(issues, result.Issues.Nodes...)
		hasNextPage = result.Issues.PageInfo.HasNextPage
		cursor = result.Issues.PageInfo.EndCursor
	}

	return issues, nil
}

// UpdateIssueParent はLinearイシューの親を設定します
func (l *LinearClient) UpdateIssueParent(issueID, parentID string) error {
	mutation := `
	mutation UpdateIssue($issueId: String!, $parentId: String!) {
		issueUpdate(
			id: $issueId,
			input: { parentId: $parentId }
		) {
			success
			issue {
				id
				identifier
				parent {
					identifier
				}
			}
		}
	}`

	variables := map[string]interface{}{
		"issueId":  issueID,
		"parentId": parentID,
	}

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}

	if err := l.doQuery(mutation, variables, &result); err != nil {
		return fmt.Errorf("親イシュー更新エラー: %w", err)
	}

	if !result.IssueUpdate.Success {
		return fmt.Errorf("親イシュー更新失敗: issueUpdateがsuccess=falseを返しました")
	}

	return nil
}
