package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

// UserFilter narrows user listings and searches. Empty fields match everything.
type UserFilter struct {
	Role      models.Role
	Roles     []models.Role
	Statuses  []models.Status
	BatchID   *uint
	Name      string
	Email     string
	StudentID string
	Query     string
	Page      int
	PageSize  int
}

// UserRepository persists users together with their role profile.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, teacherBatchIDs []uint, payments []models.FeePayment) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Search(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User, teacherBatchIDs *[]uint) error
	UpdateStatus(ctx context.Context, id uint, status models.Status) error
	Delete(ctx context.Context, id uint) error
	ListBatchStudents(ctx context.Context, batchID uint, statuses []models.Status) ([]models.User, error)
	Leaderboard(ctx context.Context, batchID *uint, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Student.Batch.Standard").
		Preload("Staff.Batches.Standard")
}

func (r *userRepository) Create(ctx context.Context, user *models.User, teacherBatchIDs []uint, payments []models.FeePayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}

		if user.Student != nil {
			user.Student.UserID = user.ID
			if err := tx.Omit(clause.Associations).Create(user.Student).Error; err != nil {
				return err
			}
		}

		if user.Staff != nil {
			user.Staff.UserID = user.ID
			if err := tx.Omit(clause.Associations).Create(user.Staff).Error; err != nil {
				return err
			}
			if err := replaceTeacherBatches(tx, user.Staff.ID, teacherBatchIDs); err != nil {
				return err
			}
		}

		for i := range payments {
			payments[i].StudentID = user.ID
			if err := tx.Create(&payments[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.withProfiles(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.withProfiles(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Search(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("LEFT JOIN student_profiles ON student_profiles.user_id = users.id")

	if filter.Role != "" {
		query = query.Where("users.role = ?", filter.Role)
	}
	if len(filter.Roles) > 0 {
		query = query.Where("users.role IN ?", filter.Roles)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("users.status IN ?", filter.Statuses)
	}
	if filter.BatchID != nil {
		query = query.Where("student_profiles.batch_id = ?", *filter.BatchID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER(users.name) LIKE ?", likePattern(name))
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		query = query.Where("LOWER(users.email) LIKE ?", likePattern(email))
	}
	if studentID := strings.TrimSpace(filter.StudentID); studentID != "" {
		query = query.Where("LOWER(student_profiles.student_id) LIKE ?", likePattern(studentID))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := likePattern(q)
		query = query.Where("LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ?", like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}

	var users []models.User
	err := query.
		Preload("Student.Batch.Standard").
		Preload("Staff.Batches.Standard").
		Order("users.created_at DESC").
		Order("users.id DESC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User, teacherBatchIDs *[]uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}

		if user.Student != nil {
			if err := tx.Omit(clause.Associations).Save(user.Student).Error; err != nil {
				return err
			}
		}

		if user.Staff != nil {
			if err := tx.Omit(clause.Associations).Save(user.Staff).Error; err != nil {
				return err
			}
			if teacherBatchIDs != nil {
				if err := replaceTeacherBatches(tx, user.Staff.ID, *teacherBatchIDs); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint, status models.Status) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the user's payments, profile and teacher batch links, then
// soft deletes the user row. Everything happens in one transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			return err
		}

		if err := tx.Where("student_id = ?", id).Delete(&models.FeePayment{}).Error; err != nil {
			return err
		}

		var staff models.StaffProfile
		err := tx.Where("user_id = ?", id).Limit(1).Find(&staff).Error
		if err != nil {
			return err
		}
		if staff.ID != 0 {
			if err := replaceTeacherBatches(tx, staff.ID, nil); err != nil {
				return err
			}
			if err := tx.Delete(&models.StaffProfile{}, staff.ID).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.StudentProfile{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

func (r *userRepository) ListBatchStudents(ctx context.Context, batchID uint, statuses []models.Status) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN student_profiles ON student_profiles.user_id = users.id").
		Where("users.role = ?", models.RoleStudent).
		Where("student_profiles.batch_id = ?", batchID)
	if len(statuses) > 0 {
		query = query.Where("users.status IN ?", statuses)
	}

	var users []models.User
	err := query.
		Preload("Student.Batch.Standard").
		Order("users.name ASC").
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Leaderboard ranks enrolled students by test plus attendance score.
func (r *userRepository) Leaderboard(ctx context.Context, batchID *uint, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN student_profiles ON student_profiles.user_id = users.id").
		Where("users.role = ?", models.RoleStudent).
		Where("users.status IN ?", models.EnrolledStatuses)
	if batchID != nil {
		query = query.Where("student_profiles.batch_id = ?", *batchID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var users []models.User
	err := query.
		Preload("Student.Batch.Standard").
		Order("(student_profiles.test_score + student_profiles.attendance_score) DESC").
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func replaceTeacherBatches(tx *gorm.DB, staffProfileID uint, batchIDs []uint) error {
	if err := tx.Exec("DELETE FROM teacher_batches WHERE staff_profile_id = ?", staffProfileID).Error; err != nil {
		return err
	}
	seen := make(map[uint]struct{}, len(batchIDs))
	for _, batchID := range batchIDs {
		if _, ok := seen[batchID]; ok {
			continue
		}
		seen[batchID] = struct{}{}
		err := tx.Exec("INSERT INTO teacher_batches (staff_profile_id, batch_id) VALUES (?, ?)", staffProfileID, batchID).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func likePattern(value string) string {
	return "%" + strings.ToLower(value) + "%"
}
