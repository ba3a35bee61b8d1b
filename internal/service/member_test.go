package service

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whiteboard-backend/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	return db, mock
}

func TestBoardRole(t *testing.T) {
	const boardID = "b7c1d9f0-0000-0000-0000-000000000001"

	t.Run("owner resolves without member lookup", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT owner_id FROM "boards"`).
			WithArgs(boardID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(7)))

		if role := svc.BoardRole(boardID, 7); role != model.RoleOwner {
			t.Errorf("role = %q, want owner", role)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("member role comes from board_members", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT owner_id FROM "boards"`).
			WithArgs(boardID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(7)))
		mock.ExpectQuery(`SELECT "role" FROM "board_members"`).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("editor"))

		if role := svc.BoardRole(boardID, 9); role != model.RoleEditor {
			t.Errorf("role = %q, want editor", role)
		}
	})

	t.Run("non-member gets empty role", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT owner_id FROM "boards"`).
			WithArgs(boardID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(7)))
		mock.ExpectQuery(`SELECT "role" FROM "board_members"`).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		if role := svc.BoardRole(boardID, 9); role != "" {
			t.Errorf("role = %q, want empty", role)
		}
	})

	t.Run("anonymous user has no role", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := NewMemberService(db)

		// userID 0은 쿼리 없이 바로 비멤버 처리
		if role := svc.BoardRole(boardID, 0); role != "" {
			t.Errorf("role = %q, want empty", role)
		}
	})
}

func TestCanView(t *testing.T) {
	const boardID = "b7c1d9f0-0000-0000-0000-000000000002"

	boardRows := func(isPublic bool, ownerID int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"is_public", "owner_id"}).AddRow(isPublic, ownerID)
	}

	t.Run("public board is viewable by anyone", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT "is_public","owner_id" FROM "boards"`).
			WillReturnRows(boardRows(true, 7))

		if !svc.CanView(boardID, 0) {
			t.Error("anonymous user denied on public board")
		}
	})

	t.Run("private board rejects anonymous users", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT "is_public","owner_id" FROM "boards"`).
			WillReturnRows(boardRows(false, 7))

		if svc.CanView(boardID, 0) {
			t.Error("anonymous user allowed on private board")
		}
	})

	t.Run("private board allows the owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT "is_public","owner_id" FROM "boards"`).
			WillReturnRows(boardRows(false, 7))

		if !svc.CanView(boardID, 7) {
			t.Error("owner denied on own private board")
		}
	})

	t.Run("private board allows members only", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT "is_public","owner_id" FROM "boards"`).
			WillReturnRows(boardRows(false, 7))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "board_members"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

		if !svc.CanView(boardID, 9) {
			t.Error("member denied on private board")
		}
	})

	t.Run("missing board is not viewable", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT "is_public","owner_id" FROM "boards"`).
			WillReturnRows(sqlmock.NewRows([]string{"is_public", "owner_id"}))

		if svc.CanView(boardID, 7) {
			t.Error("nonexistent board reported viewable")
		}
	})
}

func TestCanEdit(t *testing.T) {
	const boardID = "b7c1d9f0-0000-0000-0000-000000000003"

	roleQueries := func(mock sqlmock.Sqlmock, role string) {
		mock.ExpectQuery(`SELECT owner_id FROM "boards"`).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(7)))
		mock.ExpectQuery(`SELECT "role" FROM "board_members"`).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(role))
	}

	t.Run("viewer cannot edit", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		roleQueries(mock, "viewer")
		if svc.CanEdit(boardID, 9) {
			t.Error("viewer allowed to edit")
		}
	})

	t.Run("editor and admin can edit", func(t *testing.T) {
		for _, role := range []string{"editor", "admin"} {
			db, mock := newMockDB(t)
			svc := NewMemberService(db)

			roleQueries(mock, role)
			if !svc.CanEdit(boardID, 9) {
				t.Errorf("%s denied edit", role)
			}
		}
	})

	t.Run("owner can edit", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewMemberService(db)

		mock.ExpectQuery(`SELECT owner_id FROM "boards"`).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(7)))

		if !svc.CanEdit(boardID, 7) {
			t.Error("owner denied edit")
		}
	})
}
