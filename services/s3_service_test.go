package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	deleted []string
	err     error
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, f.err
}

type fakePresigner struct {
	putKey, putType, getKey string
}

func (p *fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*PresignedURL, error) {
	p.putKey, p.putType = aws.ToString(in.Key), aws.ToString(in.ContentType)
	return &PresignedURL{URL: "https://upload/" + p.putKey}, nil
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*PresignedURL, error) {
	p.getKey = aws.ToString(in.Key)
	return &PresignedURL{URL: "https://read/" + p.getKey}, nil
}

func TestAssetService_UploadURLUsesPrefixAndBaseName(t *testing.T) {
	presigner := &fakePresigner{}
	svc := &AssetService{Presigner: presigner, Bucket: "covers", Prefix: "book-covers/"}

	url, key, err := svc.GenerateUploadURL(context.Background(), "../../etc/cover.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "book-covers/"))
	assert.True(t, strings.HasSuffix(key, "-cover.png"))
	assert.NotContains(t, key, "..")
	assert.Equal(t, "https://upload/"+key, url)
	assert.Equal(t, "image/png", presigner.putType)

	_, _, err = svc.GenerateUploadURL(context.Background(), "", "image/png")
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.GenerateUploadURL(context.Background(), "a.png", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssetService_ReadURL(t *testing.T) {
	presigner := &fakePresigner{}
	svc := &AssetService{Presigner: presigner, Bucket: "covers"}

	url, err := svc.GenerateReadURL(context.Background(), "book-covers/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://read/book-covers/x.png", url)

	_, err = svc.GenerateReadURL(context.Background(), " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssetService_DeleteByStoredKey(t *testing.T) {
	client := &fakeS3{}
	svc := &AssetService{Client: client, Bucket: "covers"}

	require.NoError(t, svc.Delete(context.Background(), "book-covers/x.png"))
	require.NoError(t, svc.Delete(context.Background(), ""))
	assert.Equal(t, []string{"covers/book-covers/x.png"}, client.deleted)

	client.err = errors.New("access denied")
	assert.ErrorIs(t, svc.Delete(context.Background(), "k"), ErrInternal)
}
