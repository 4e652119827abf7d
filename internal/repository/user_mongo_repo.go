package repository

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"forum-auth/internal/domain"
)

const userCollection = "users"

// MongoUserRepository implementa UserRepository sobre una colección de MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(userCollection)}
}

// EnsureIndexes crea los índices únicos de email y de hash de reseteo.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return oops.Code("USER_INDEXES_FAILED").With("collection", userCollection).Wrap(err)
	}
	return nil
}

func projection(opts LookupOptions) bson.M {
	if opts.IncludePassword {
		return nil
	}
	return bson.M{"password_hash": 0}
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.User) error {
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string, opts LookupOptions) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, opts, "get user by id")
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string, opts LookupOptions) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, opts, "get user by email")
}

func (r *MongoUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	filter := bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": bson.M{"$gt": now},
	}
	return r.findOne(ctx, filter, LookupOptions{}, "get user by reset token")
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, opts LookupOptions, operation string) (domain.User, error) {
	findOpts := options.FindOne()
	if proj := projection(opts); proj != nil {
		findOpts.SetProjection(proj)
	}

	var user domain.User
	err := r.coll.FindOne(ctx, filter, findOpts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, oops.Code("USER_NOT_FOUND").With("operation", operation).Wrap(ErrNotFound)
	}
	if err != nil {
		return domain.User{}, oops.Code("USER_LOOKUP_FAILED").With("operation", operation).Wrap(err)
	}
	return user, nil
}

func (r *MongoUserRepository) Save(ctx context.Context, user domain.User) error {
	return r.updateOne(ctx, bson.M{"_id": user.ID}, saveUpdate(user), "USER_SAVE_FAILED")
}

func (r *MongoUserRepository) ConsumeReset(ctx context.Context, user domain.User, tokenHash string) error {
	filter := bson.M{"_id": user.ID, "password_reset_token": tokenHash}
	return r.updateOne(ctx, filter, saveUpdate(user), "USER_CONSUME_RESET_FAILED")
}

func saveUpdate(user domain.User) bson.M {
	set := bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
	}
	unset := bson.M{}
	if user.PasswordChangedAt != nil {
		set["password_changed_at"] = *user.PasswordChangedAt
	} else {
		unset["password_changed_at"] = ""
	}
	if user.PasswordResetTokenHash != "" && user.PasswordResetExpires != nil {
		set["password_reset_token"] = user.PasswordResetTokenHash
		set["password_reset_expires"] = *user.PasswordResetExpires
	} else {
		unset["password_reset_token"] = ""
		unset["password_reset_expires"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (r *MongoUserRepository) UpdateResetFields(ctx context.Context, id, tokenHash string, expiresAt *time.Time) error {
	update := bson.M{"$unset": bson.M{"password_reset_token": "", "password_reset_expires": ""}}
	if tokenHash != "" && expiresAt != nil {
		update = bson.M{"$set": bson.M{
			"password_reset_token":   tokenHash,
			"password_reset_expires": *expiresAt,
		}}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update, "USER_RESET_FIELDS_FAILED")
}

func (r *MongoUserRepository) updateOne(ctx context.Context, filter, update bson.M, code string) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return oops.Code(code).With("user_id", filter["_id"]).Wrap(err)
	}
	if res.MatchedCount == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", filter["_id"]).Wrap(ErrNotFound)
	}
	return nil
}
