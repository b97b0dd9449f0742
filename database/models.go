package database

import (
	"github.com/ruteri/driving-tests-backend/interfaces"
)

// UserRecord is a row of the users table. Password holds the hex ciphertext
// produced by the credential vault, never plaintext.
type UserRecord struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string `gorm:"column:name;not null;uniqueIndex:idx_users_name_second_name"`
	SecondName string `gorm:"column:second_name;not null;uniqueIndex:idx_users_name_second_name"`
	Password   string `gorm:"column:password;not null"`
	Scores     uint32 `gorm:"column:scores;not null;default:0"`
}

func (UserRecord) TableName() string { return "users" }

// Identity converts the row to its domain form.
func (r UserRecord) Identity() interfaces.Identity {
	return interfaces.Identity{
		ID:         r.ID,
		Name:       r.Name,
		SecondName: r.SecondName,
		Credential: r.Password,
		Score:      r.Scores,
	}
}

// TestRecord is a row of the tests table.
type TestRecord struct {
	ID            int64    `gorm:"column:id;primaryKey;autoIncrement"`
	Level         int      `gorm:"column:level;not null"`
	Description   string   `gorm:"column:description;not null"`
	Answers       []string `gorm:"column:answers;serializer:json;not null"`
	RightAnswerID int      `gorm:"column:right_answer_id;not null"`
	Image         []byte   `gorm:"column:image"`
}

func (TestRecord) TableName() string { return "tests" }

// TestRecordFrom converts a quiz item to a row. The ID is left for the store to assign.
func TestRecordFrom(item interfaces.QuizItem) TestRecord {
	return TestRecord{
		Level:         int(item.Difficulty),
		Description:   item.Prompt,
		Answers:       item.Choices,
		RightAnswerID: item.CorrectChoice,
		Image:         item.Media,
	}
}

// QuizItem converts the row to its domain form.
func (r TestRecord) QuizItem() interfaces.QuizItem {
	return interfaces.QuizItem{
		ID:            r.ID,
		Difficulty:    interfaces.Difficulty(r.Level),
		Prompt:        r.Description,
		Choices:       r.Answers,
		CorrectChoice: r.RightAnswerID,
		Media:         r.Image,
	}
}
