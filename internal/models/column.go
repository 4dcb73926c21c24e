package models

// Column is an ordered list of tasks within a board. Positions are dense
// 1..N per board; deleting a column cascades to its tasks.
type Column struct {
	ID       uint64 `gorm:"primarykey" json:"id"`
	BoardID  uint64 `gorm:"not null;index" json:"board_id"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Position int    `gorm:"not null" json:"position"`

	// Relations
	Board Board  `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	Tasks []Task `gorm:"foreignKey:ColumnID" json:"tasks,omitempty"`
}
