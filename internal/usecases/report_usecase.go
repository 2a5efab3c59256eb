package usecases

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const (
	reportMemberLimit       = 10000
	reportConversationLimit = 5000
	reportDateLayout        = "02/01/2006 15:04"
)

// ReportUsecase exports members and conversations as .xlsx workbooks.
type ReportUsecase struct {
	store *interfaces.Store
}

func NewReportUsecase(store *interfaces.Store) *ReportUsecase {
	return &ReportUsecase{store: store}
}

func (u *ReportUsecase) ExportMembers(ctx context.Context, clientID string, w io.Writer) error {
	members, err := u.store.Members.List(ctx, entities.MemberFilter{
		ClientID: orDefaultClient(clientID),
		Limit:    reportMemberLimit,
	})
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	headers := []string{"Nome", "Telefone", "Email", "CPF", "Matrícula", "Categoria", "Status", "Data de entrada", "Observações", "Criado em"}
	rows := make([][]any, 0, len(members))
	for _, m := range members {
		joined := ""
		if m.JoinDate != nil {
			joined = m.JoinDate.Format(reportDateLayout)
		}
		rows = append(rows, []any{
			m.Name, m.Phone, m.Email, m.CPF, m.MembershipID, m.Category,
			string(m.Status), joined, m.Notes, m.CreatedAt.Format(reportDateLayout),
		})
	}
	return writeWorkbook(w, "Membros", headers, rows)
}

func (u *ReportUsecase) ExportConversations(ctx context.Context, f entities.ConversationFilter, w io.Writer) error {
	f.Limit = reportConversationLimit
	convs, err := u.store.Conversations.List(ctx, f)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	headers := []string{"ID", "Telefone", "Membro", "Status", "Sentimento", "Mensagens", "Última mensagem", "Resumo", "Iniciada em", "Atualizada em"}
	rows := make([][]any, 0, len(convs))
	for _, c := range convs {
		var member, sentiment, last, summary string
		if c.Member != nil {
			member = c.Member.Name
		}
		if c.Sentiment != nil {
			sentiment = string(*c.Sentiment)
		}
		if c.LastMessage != nil {
			last = c.LastMessage.Content
		}
		if c.Summary != nil {
			summary = *c.Summary
		}
		rows = append(rows, []any{
			c.ID, c.Phone, member, string(c.Status), sentiment, c.MessageCount, last, summary,
			c.CreatedAt.Format(reportDateLayout), c.UpdatedAt.Format(reportDateLayout),
		})
	}
	return writeWorkbook(w, "Conversas", headers, rows)
}

func writeWorkbook(w io.Writer, sheet string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReportFilename builds a timestamped download name.
func ReportFilename(kind string) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, time.Now().Format("20060102_150405"))
}
