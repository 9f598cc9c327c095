package route53

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"

	"github.com/seawhite/aws-r53-ip-updater/pkg/cloudprovider"
)

type Route53Provider struct {
	client *r53.Client
}

// New loads AWS credentials from the default chain, optionally pinned to a
// shared config profile, and returns a Route 53 backed provider.
func New(ctx context.Context, profile string) (*Route53Provider, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Route53Provider{client: r53.NewFromConfig(cfg)}, nil
}

func (p *Route53Provider) GetRecord(ctx context.Context, zoneID, name, recordType string) (*cloudprovider.RecordSnapshot, error) {
	fq := Fqdn(name)
	out, err := p.client.ListResourceRecordSets(ctx, &r53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(fq),
		StartRecordType: types.RRType(recordType),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(out.ResourceRecordSets) == 0 {
		return nil, cloudprovider.ErrRecordNotFound
	}
	// The listing starts at the requested name; a different first result
	// means the record set does not exist.
	rrset := out.ResourceRecordSets[0]
	if !strings.EqualFold(aws.ToString(rrset.Name), fq) || string(rrset.Type) != recordType {
		return nil, cloudprovider.ErrRecordNotFound
	}
	snap := &cloudprovider.RecordSnapshot{
		Name: aws.ToString(rrset.Name),
		Type: string(rrset.Type),
		TTL:  aws.ToInt64(rrset.TTL),
	}
	for _, rr := range rrset.ResourceRecords {
		snap.Values = append(snap.Values, aws.ToString(rr.Value))
	}
	return snap, nil
}

func (p *Route53Provider) UpsertRecord(ctx context.Context, zoneID string, req cloudprovider.ChangeRequest) (*cloudprovider.ChangeResult, error) {
	out, err := p.client.ChangeResourceRecordSets(ctx, &r53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(Fqdn(req.Name)),
						Type: types.RRType(req.Type),
						TTL:  aws.Int64(req.TTL),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(req.Value)},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	return &cloudprovider.ChangeResult{
		ChangeID: aws.ToString(out.ChangeInfo.Id),
		Status:   changeStatus(out.ChangeInfo.Status),
	}, nil
}

func (p *Route53Provider) ChangeStatus(ctx context.Context, changeID string) (cloudprovider.ChangeStatus, error) {
	out, err := p.client.GetChange(ctx, &r53.GetChangeInput{Id: aws.String(changeID)})
	if err != nil {
		return "", classify(err)
	}
	return changeStatus(out.ChangeInfo.Status), nil
}

// Fqdn appends the trailing dot Route 53 uses on record names.
func Fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

func changeStatus(s types.ChangeStatus) cloudprovider.ChangeStatus {
	if s == types.ChangeStatusInsync {
		return cloudprovider.StatusInsync
	}
	return cloudprovider.StatusPending
}

func classify(err error) error {
	var noZone *types.NoSuchHostedZone
	if errors.As(err, &noZone) {
		return fmt.Errorf("%w: %s", cloudprovider.ErrZoneNotFound, noZone.ErrorMessage())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "PriorRequestNotComplete", "RequestLimitExceeded":
			return fmt.Errorf("%w: %s", cloudprovider.ErrThrottled, apiErr.ErrorMessage())
		case "AccessDenied", "AccessDeniedException", "UnrecognizedClientException",
			"InvalidClientTokenId", "SignatureDoesNotMatch", "ExpiredToken", "ExpiredTokenException":
			return fmt.Errorf("%w: %s", cloudprovider.ErrAuth, apiErr.ErrorMessage())
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.HTTPStatusCode() == http.StatusUnauthorized || respErr.HTTPStatusCode() == http.StatusForbidden:
			return fmt.Errorf("%w: %v", cloudprovider.ErrAuth, err)
		case respErr.HTTPStatusCode() >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", cloudprovider.ErrUnavailable, err)
		}
	}
	return err
}
