package admin

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified name of the admin service.
	ServiceName = "typerace.admin.v1.AdminService"

	// GetStatsProcedure is the fully-qualified name of the GetStats RPC.
	GetStatsProcedure = "/" + ServiceName + "/GetStats"
)

var (
	registerOnce sync.Once
	registerErr  error
	serviceDesc  protoreflect.ServiceDescriptor
)

// adminFile describes the service using well-known types only, so no
// generated code is needed.
func adminFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("typerace/admin/v1/admin.proto"),
		Package: proto.String("typerace.admin.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			"google/protobuf/empty.proto",
			"google/protobuf/struct.proto",
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("AdminService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("GetStats"),
				InputType:  proto.String(".google.protobuf.Empty"),
				OutputType: proto.String(".google.protobuf.Struct"),
			}},
		}},
	}
}

// registerDescriptor adds the admin service to the global registry so the
// reflection handlers can serve it.
func registerDescriptor() (protoreflect.ServiceDescriptor, error) {
	registerOnce.Do(func() {
		fd, err := protodesc.NewFile(adminFile(), protoregistry.GlobalFiles)
		if err != nil {
			registerErr = fmt.Errorf("build admin descriptor: %w", err)
			return
		}
		if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
			registerErr = fmt.Errorf("register admin descriptor: %w", err)
			return
		}
		serviceDesc = fd.Services().ByName("AdminService")
	})
	return serviceDesc, registerErr
}
