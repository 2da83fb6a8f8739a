package database

// Repositories bundles one repository per archived entity over a shared DB.
type Repositories struct {
	Guilds        *GuildRepository
	Categories    *CategoryRepository
	Channels      *ChannelRepository
	Threads       *ThreadRepository
	Roles         *RoleRepository
	Users         *UserRepository
	Messages      *MessageRepository
	Attachments   *AttachmentRepository
	Reactions     *ReactionRepository
	Emojis        *EmojiRepository
	MessageEmojis *MessageEmojiRepository
	Processes     *ProcessRepository
}

func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Guilds:        NewGuildRepository(db),
		Categories:    NewCategoryRepository(db),
		Channels:      NewChannelRepository(db),
		Threads:       NewThreadRepository(db),
		Roles:         NewRoleRepository(db),
		Users:         NewUserRepository(db),
		Messages:      NewMessageRepository(db),
		Attachments:   NewAttachmentRepository(db),
		Reactions:     NewReactionRepository(db),
		Emojis:        NewEmojiRepository(db),
		MessageEmojis: NewMessageEmojiRepository(db),
		Processes:     NewProcessRepository(db),
	}
}
