package service

import (
	"testing"

	"socialhub_backend/internal/config"
	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/pkg/database"
	"socialhub_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv wires the full service graph against an in-memory database.
// Redis and the realtime hub are left nil; all code paths degrade gracefully.
type testEnv struct {
	DB            *gorm.DB
	Users         *repository.UserRepository
	Relations     *repository.RelationshipRepository
	Conversations *repository.ConversationRepository
	Messages      *repository.MessageRepository
	Notifications *repository.NotificationRepository
	Community     *repository.CommunityRepository

	Relationship *RelationshipService
	Conversation *ConversationService
	Message      *MessageService
	Unread       *UnreadService
	Notification *NotificationService
	User         *UserService
	CommunitySvc *CommunityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// 内存库按连接隔离，必须收敛到单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	env := &testEnv{DB: db}
	env.Users = repository.NewUserRepository(db)
	env.Relations = repository.NewRelationshipRepository(db, nil)
	env.Conversations = repository.NewConversationRepository(db, nil)
	env.Messages = repository.NewMessageRepository(db, nil)
	env.Notifications = repository.NewNotificationRepository(db)
	env.Community = repository.NewCommunityRepository(db)

	storage := &StorageService{Provider: &LocalStorageProvider{
		Config: &config.StorageConfig{LocalPath: t.TempDir()},
	}}

	env.Notification = NewNotificationService(env.Notifications, env.Relations, nil)
	env.Relationship = NewRelationshipService(env.Relations, env.Users, env.Notification)
	env.Conversation = NewConversationService(db, env.Conversations, env.Messages, env.Relations, env.Users, nil)
	env.Message = NewMessageService(db, env.Messages, env.Conversations, storage, nil, env.Notification)
	env.Unread = NewUnreadService(env.Conversations, env.Messages)
	env.User = NewUserService(env.Users, env.Relations, storage)
	env.CommunitySvc = NewCommunityService(env.Community, env.Users, storage, env.Notification)

	return env
}

func (e *testEnv) createUser(t *testing.T, name string, privacy model.UserPrivacy) *model.User {
	t.Helper()
	u := &model.User{
		Name:    name,
		Email:   name + "@example.com",
		Privacy: privacy,
	}
	require.NoError(t, e.DB.Create(u).Error)
	return u
}
