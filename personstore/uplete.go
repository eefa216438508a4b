package personstore

import (
	"fmt"
	"strings"

	"github.com/bluesky-social/fedperson/models"

	"gorm.io/gorm"
)

// every nullable action column on person_actions; a row where all of these are null is removed
var personActionColumns = []string{"followed", "follow_pending", "blocked"}

// UpleteCount reports the outcome of clearing action columns: rows which still carry other actions
// are Updated, rows left empty are Deleted.
type UpleteCount struct {
	Updated int64 `json:"updated"`
	Deleted int64 `json:"deleted"`
}

func (c UpleteCount) Total() int64 {
	return c.Updated + c.Deleted
}

// uplete nulls the given columns on one person_actions row, then deletes the row if no action is
// left on it. Must be called inside a transaction.
func uplete(tx *gorm.DB, personID, targetID models.PersonID, columns []string) (UpleteCount, error) {
	var cnt UpleteCount

	set := map[string]any{}
	anySet := make([]string, 0, len(columns))
	for _, c := range columns {
		set[c] = nil
		anySet = append(anySet, c+" IS NOT NULL")
	}

	res := tx.Model(&models.PersonActions{}).
		Where("person_id = ? AND target_id = ?", personID, targetID).
		Where("(" + strings.Join(anySet, " OR ") + ")").
		Updates(set)
	if res.Error != nil {
		return cnt, fmt.Errorf("failed to clear person actions: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return cnt, nil
	}

	allNull := make([]string, 0, len(personActionColumns))
	for _, c := range personActionColumns {
		allNull = append(allNull, c+" IS NULL")
	}
	del := tx.Where("person_id = ? AND target_id = ?", personID, targetID).
		Where(strings.Join(allNull, " AND ")).
		Delete(&models.PersonActions{})
	if del.Error != nil {
		return cnt, fmt.Errorf("failed to delete empty person actions: %w", del.Error)
	}

	cnt.Deleted = del.RowsAffected
	cnt.Updated = res.RowsAffected - del.RowsAffected
	return cnt, nil
}
