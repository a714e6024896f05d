package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func TestSESClient_SendEmail(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "insights@example.com" &&
			in.Destination.ToAddresses[0] == "owner@example.com" &&
			aws.ToString(in.Message.Subject.Data) == "Weekly digest" &&
			in.Message.Body.Html == nil
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil)

	id, err := NewSESClientWithAPI(api, "insights@example.com").
		SendEmail(context.Background(), "owner@example.com", "Weekly digest", "hello", "")

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSESClient_SendEmailError(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewSESClientWithAPI(api, "a@example.com").
		SendEmail(context.Background(), "b@example.com", "s", "t", "<p>t</p>")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSNSClient_SendSMS(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		_, hasSender := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return aws.ToString(in.PhoneNumber) == "+15550100" && hasSender
	})).Return(&sns.PublishOutput{MessageId: aws.String("sms-1")}, nil)

	id, err := NewSNSClientWithAPI(api, "MYSHOP").SendSMS(context.Background(), "+15550100", "2 customers at risk")

	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
	api.AssertExpectations(t)
}

func TestSNSClient_NoSenderID(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		_, hasSender := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return !hasSender
	})).Return(&sns.PublishOutput{}, nil)

	_, err := NewSNSClientWithAPI(api, "").SendSMS(context.Background(), "+15550100", "hi")

	require.NoError(t, err)
	api.AssertExpectations(t)
}
