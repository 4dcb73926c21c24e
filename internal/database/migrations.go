package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes that AutoMigrate does not
// derive from struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Position scans: every ordering operation filters by scope and
		// orders/ranges on position.
		{"columns", "idx_columns_board_position", "board_id, position"},
		{"tasks", "idx_tasks_column_position", "column_id, position"},
		{"user_board_orders", "idx_user_board_orders_user_position", "user_id, position"},

		// Chat history is always fetched per room ordered by creation time
		{"chat_messages", "idx_chat_messages_room_created", "room_id, created_at"},
		{"private_messages", "idx_private_messages_chat_created", "chat_id, created_at"},

		{"boards", "idx_boards_owner_archived", "owner_id, is_archived"},
	}

	for _, idx := range indexes {
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			// Index may already exist from a previous boot; MySQL has no
			// CREATE INDEX IF NOT EXISTS, so probe and skip.
			if db.Migrator().HasIndex(idx.table, idx.name) {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
