package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/kbbot/internal/api"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
)

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		Step:                string(job.CurrentStep),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
	}
}

func ToSearchResponse(query string, result commonModels.QueryResult, rendered string) api.SearchResponse {
	matches := make([]api.SearchMatch, 0, len(result.Matches))
	for _, m := range result.Matches {
		source, _ := m.Entry.Metadata[commonModels.MetaSource].(string)
		matches = append(matches, api.SearchMatch{
			Text:     m.Entry.Text,
			Source:   source,
			Metadata: m.Entry.Metadata,
			Distance: m.Distance,
		})
	}
	return api.SearchResponse{Query: query, Matches: matches, Rendered: rendered}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
